package memory

import (
	"context"
	"fmt"

	"github.com/pantrychef/pantry/internal/domain/grocery"
)

type GroceryRepository struct {
	db *DB
}

func (r *GroceryRepository) ListByUser(ctx context.Context, userID string) ([]*grocery.Item, error) {
	_ = ctx

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*grocery.Item, 0)
	for _, it := range r.db.items {
		if it.UserID == userID {
			out = append(out, it.Clone())
		}
	}
	newestFirst(out, func(it *grocery.Item) (int64, string) { return it.CreatedAt.UnixNano(), it.ID })
	return out, nil
}

func (r *GroceryRepository) Get(ctx context.Context, id string) (*grocery.Item, error) {
	_ = ctx

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	it, ok := r.db.items[id]
	if !ok {
		return nil, grocery.ErrNotFound
	}
	return it.Clone(), nil
}

func (r *GroceryRepository) Insert(ctx context.Context, item *grocery.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("grocery repository: id is required")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.items[item.ID]; exists {
		return fmt.Errorf("grocery repository: duplicate id %s", item.ID)
	}
	r.db.items[item.ID] = item.Clone()
	return nil
}

func (r *GroceryRepository) Update(ctx context.Context, item *grocery.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("grocery repository: id is required")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.items[item.ID]; !exists {
		return grocery.ErrNotFound
	}
	r.db.items[item.ID] = item.Clone()
	return nil
}

func (r *GroceryRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.items[id]; !exists {
		return grocery.ErrNotFound
	}
	delete(r.db.items, id)
	return nil
}
