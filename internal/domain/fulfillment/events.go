package fulfillment

import "time"

// CookRequestedEvent asks the fulfillment worker to cook a recipe for a user
// whose identity was already resolved by the publisher.
type CookRequestedEvent struct {
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	RecipeID   string    `json:"recipeId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e CookRequestedEvent) PartitionKey() string { return e.UserID }

func (CookRequestedEvent) EventName() string { return "recipe.cook_requested" }

func NewCookRequestedEvent(requestID, userID, recipeID string) CookRequestedEvent {
	return CookRequestedEvent{
		RequestID:  requestID,
		UserID:     userID,
		RecipeID:   recipeID,
		OccurredAt: time.Now().UTC(),
	}
}
