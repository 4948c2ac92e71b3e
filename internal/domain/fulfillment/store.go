package fulfillment

import (
	"context"
	"time"

	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

// Store is the narrow record store a cook reads from and writes to.
type Store interface {
	// RecipeIngredients returns the ingredients of a recipe owned by userID,
	// or recipe.ErrNotFound.
	RecipeIngredients(ctx context.Context, userID, recipeID string) ([]recipe.Ingredient, error)
	StockByUser(ctx context.Context, userID string) ([]*grocery.Item, error)
	// UpdateQuantity sets a new quantity only if the row still holds expected.
	// A mismatch or a missing row returns ErrConcurrentModification.
	UpdateQuantity(ctx context.Context, itemID string, expected, quantity float64, at time.Time) error
	// DeleteItem removes the row only if it still holds expected.
	DeleteItem(ctx context.Context, itemID string, expected float64) error
	InsertMealPlan(ctx context.Context, plan *mealplan.MealPlan) error
}

// UnitOfWork runs fn against a Store whose writes become visible together
// when fn returns nil and are discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
