package mealplan

import "time"

// CompletedEvent is emitted after a recipe was cooked and inventory deducted.
type CompletedEvent struct {
	MealPlanID string    `json:"mealPlanId"`
	UserID     string    `json:"userId"`
	RecipeID   string    `json:"recipeId"`
	Deducted   int       `json:"deducted"`
	Depleted   int       `json:"depleted"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e CompletedEvent) PartitionKey() string { return e.UserID }

func (CompletedEvent) EventName() string { return "meal.completed" }

func NewCompletedEvent(plan *MealPlan, deducted, depleted int) CompletedEvent {
	return CompletedEvent{
		MealPlanID: plan.ID,
		UserID:     plan.UserID,
		RecipeID:   plan.RecipeID,
		Deducted:   deducted,
		Depleted:   depleted,
		OccurredAt: time.Now().UTC(),
	}
}
