package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

// UnitOfWork holds the DB write lock for the whole of fn and applies the
// staged change-set only when fn succeeds. fn must use the Store it is given;
// calling the DB repositories from inside fn deadlocks.
type UnitOfWork struct {
	db *DB
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store fulfillment.Store) error) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	tx := &txStore{
		db:      u.db,
		updates: make(map[string]*grocery.Item),
		deletes: make(map[string]struct{}),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fulfillment.WrapStore(fulfillment.StageCommit, err)
	}
	tx.apply()
	return nil
}

type txStore struct {
	db      *DB
	updates map[string]*grocery.Item
	deletes map[string]struct{}
	plans   []*mealplan.MealPlan
}

func (s *txStore) RecipeIngredients(ctx context.Context, userID, recipeID string) ([]recipe.Ingredient, error) {
	_ = ctx
	rec, ok := s.db.recipes[recipeID]
	if !ok || rec.UserID != userID {
		return nil, recipe.ErrNotFound
	}
	return append([]recipe.Ingredient(nil), rec.Ingredients...), nil
}

func (s *txStore) StockByUser(ctx context.Context, userID string) ([]*grocery.Item, error) {
	_ = ctx
	out := make([]*grocery.Item, 0)
	for id := range s.db.items {
		if it, ok := s.current(id); ok && it.UserID == userID {
			out = append(out, it.Clone())
		}
	}
	return fulfillment.SortStock(out), nil
}

func (s *txStore) UpdateQuantity(ctx context.Context, itemID string, expected, quantity float64, at time.Time) error {
	_ = ctx
	it, ok := s.current(itemID)
	if !ok || it.Quantity != expected {
		return fulfillment.ErrConcurrentModification
	}
	next := it.Clone()
	next.Quantity = quantity
	next.UpdatedAt = at
	s.updates[itemID] = next
	return nil
}

func (s *txStore) DeleteItem(ctx context.Context, itemID string, expected float64) error {
	_ = ctx
	it, ok := s.current(itemID)
	if !ok || it.Quantity != expected {
		return fulfillment.ErrConcurrentModification
	}
	delete(s.updates, itemID)
	s.deletes[itemID] = struct{}{}
	return nil
}

func (s *txStore) InsertMealPlan(ctx context.Context, plan *mealplan.MealPlan) error {
	_ = ctx
	if plan == nil || plan.ID == "" {
		return fmt.Errorf("meal plan repository: id is required")
	}
	if _, exists := s.db.plans[plan.ID]; exists {
		return fmt.Errorf("meal plan repository: duplicate id %s", plan.ID)
	}
	s.plans = append(s.plans, plan.Clone())
	return nil
}

// current returns the row as this transaction sees it.
func (s *txStore) current(id string) (*grocery.Item, bool) {
	if _, gone := s.deletes[id]; gone {
		return nil, false
	}
	if it, ok := s.updates[id]; ok {
		return it, true
	}
	it, ok := s.db.items[id]
	return it, ok
}

func (s *txStore) apply() {
	for id, it := range s.updates {
		s.db.items[id] = it
	}
	for id := range s.deletes {
		delete(s.db.items, id)
	}
	for _, mp := range s.plans {
		s.db.plans[mp.ID] = mp
	}
}
