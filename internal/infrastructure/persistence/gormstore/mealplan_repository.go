package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pantrychef/pantry/internal/domain/mealplan"
)

type MealPlanRepository struct {
	db *gorm.DB
}

func NewMealPlanRepository(db *gorm.DB) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

func (r *MealPlanRepository) Insert(ctx context.Context, plan *mealplan.MealPlan) error {
	if err := r.db.WithContext(ctx).Create(planToModel(plan)).Error; err != nil {
		return fmt.Errorf("meal plan repository: insert: %w", err)
	}
	return nil
}

func (r *MealPlanRepository) Get(ctx context.Context, id string) (*mealplan.MealPlan, error) {
	var m MealPlanModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mealplan.ErrNotFound
		}
		return nil, fmt.Errorf("meal plan repository: get: %w", err)
	}
	return modelToPlan(&m), nil
}

func (r *MealPlanRepository) Update(ctx context.Context, plan *mealplan.MealPlan) error {
	res := r.db.WithContext(ctx).
		Model(&MealPlanModel{}).
		Where("id = ?", plan.ID).
		Updates(map[string]any{
			"status":       string(plan.Status),
			"planned_date": plan.PlannedDate,
		})
	if res.Error != nil {
		return fmt.Errorf("meal plan repository: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return mealplan.ErrNotFound
	}
	return nil
}

func (r *MealPlanRepository) ListByUser(ctx context.Context, userID string) ([]*mealplan.MealPlan, error) {
	var models []MealPlanModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("meal plan repository: list: %w", err)
	}
	out := make([]*mealplan.MealPlan, 0, len(models))
	for i := range models {
		out = append(out, modelToPlan(&models[i]))
	}
	return out, nil
}
