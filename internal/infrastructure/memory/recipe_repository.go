package memory

import (
	"context"
	"fmt"

	"github.com/pantrychef/pantry/internal/domain/recipe"
)

type RecipeRepository struct {
	db *DB
}

func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	_ = ctx
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("recipe repository: id is required")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.recipes[rec.ID]; exists {
		return fmt.Errorf("recipe repository: duplicate id %s", rec.ID)
	}
	r.db.recipes[rec.ID] = rec.Clone()
	return nil
}

func (r *RecipeRepository) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	_ = ctx

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rec, ok := r.db.recipes[id]
	if !ok {
		return nil, recipe.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *RecipeRepository) ListByUser(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	_ = ctx

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*recipe.Recipe, 0)
	for _, rec := range r.db.recipes {
		if rec.UserID == userID {
			out = append(out, rec.Clone())
		}
	}
	newestFirst(out, func(rec *recipe.Recipe) (int64, string) { return rec.CreatedAt.UnixNano(), rec.ID })
	return out, nil
}

func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.recipes[id]; !ok {
		return recipe.ErrNotFound
	}
	delete(r.db.recipes, id)
	for pid, mp := range r.db.plans {
		if mp.RecipeID == id {
			delete(r.db.plans, pid)
		}
	}
	return nil
}
