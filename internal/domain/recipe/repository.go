package recipe

import "context"

type Repository interface {
	// Create stores the recipe together with its ingredients.
	Create(ctx context.Context, r *Recipe) error
	Get(ctx context.Context, id string) (*Recipe, error)
	// ListByUser returns the user's recipes newest first, ingredients included.
	ListByUser(ctx context.Context, userID string) ([]*Recipe, error)
	// Delete removes the recipe and its ingredients.
	Delete(ctx context.Context, id string) error
}
