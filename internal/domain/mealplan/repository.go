package mealplan

import "context"

type Repository interface {
	Insert(ctx context.Context, plan *MealPlan) error
	Get(ctx context.Context, id string) (*MealPlan, error)
	Update(ctx context.Context, plan *MealPlan) error
	// ListByUser returns plans newest first.
	ListByUser(ctx context.Context, userID string) ([]*MealPlan, error)
}
