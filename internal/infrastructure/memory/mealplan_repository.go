package memory

import (
	"context"
	"fmt"

	"github.com/pantrychef/pantry/internal/domain/mealplan"
)

type MealPlanRepository struct {
	db *DB
}

func (r *MealPlanRepository) Insert(ctx context.Context, plan *mealplan.MealPlan) error {
	_ = ctx

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.insertPlanLocked(plan)
}

func (r *MealPlanRepository) Get(ctx context.Context, id string) (*mealplan.MealPlan, error) {
	_ = ctx

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	mp, ok := r.db.plans[id]
	if !ok {
		return nil, mealplan.ErrNotFound
	}
	return mp.Clone(), nil
}

func (r *MealPlanRepository) Update(ctx context.Context, plan *mealplan.MealPlan) error {
	_ = ctx
	if plan == nil || plan.ID == "" {
		return fmt.Errorf("meal plan repository: id is required")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.plans[plan.ID]; !ok {
		return mealplan.ErrNotFound
	}
	r.db.plans[plan.ID] = plan.Clone()
	return nil
}

func (r *MealPlanRepository) ListByUser(ctx context.Context, userID string) ([]*mealplan.MealPlan, error) {
	_ = ctx

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*mealplan.MealPlan, 0)
	for _, mp := range r.db.plans {
		if mp.UserID == userID {
			out = append(out, mp.Clone())
		}
	}
	newestFirst(out, func(mp *mealplan.MealPlan) (int64, string) { return mp.CreatedAt.UnixNano(), mp.ID })
	return out, nil
}

func (db *DB) insertPlanLocked(plan *mealplan.MealPlan) error {
	if plan == nil || plan.ID == "" {
		return fmt.Errorf("meal plan repository: id is required")
	}
	if _, exists := db.plans[plan.ID]; exists {
		return fmt.Errorf("meal plan repository: duplicate id %s", plan.ID)
	}
	if _, ok := db.recipes[plan.RecipeID]; !ok {
		return fmt.Errorf("meal plan repository: %w", mealplan.ErrRecipeRequired)
	}
	db.plans[plan.ID] = plan.Clone()
	return nil
}
