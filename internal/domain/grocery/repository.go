package grocery

import "context"

type Repository interface {
	// ListByUser returns the user's items, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	Insert(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
}
