package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

// UnitOfWork runs a cook inside one database transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store fulfillment.Store) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx *gorm.DB
}

func (s *txStore) RecipeIngredients(ctx context.Context, userID, recipeID string) ([]recipe.Ingredient, error) {
	var rec RecipeModel
	err := s.tx.WithContext(ctx).
		Select("id").
		Where("id = ? AND user_id = ?", recipeID, userID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrNotFound
		}
		return nil, fmt.Errorf("select recipe: %w", err)
	}

	var models []RecipeIngredientModel
	if err := orderedIngredients(s.tx.WithContext(ctx)).
		Where("recipe_id = ?", recipeID).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("select recipe_ingredients: %w", err)
	}
	return modelsToIngredients(models), nil
}

func (s *txStore) StockByUser(ctx context.Context, userID string) ([]*grocery.Item, error) {
	var models []GroceryItemModel
	if err := s.tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("select grocery_items: %w", err)
	}
	out := make([]*grocery.Item, 0, len(models))
	for i := range models {
		out = append(out, modelToItem(&models[i]))
	}
	return out, nil
}

func (s *txStore) UpdateQuantity(ctx context.Context, itemID string, expected, quantity float64, at time.Time) error {
	res := s.tx.WithContext(ctx).
		Model(&GroceryItemModel{}).
		Where("id = ? AND quantity = ?", itemID, expected).
		Updates(map[string]any{"quantity": quantity, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("update grocery_items: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fulfillment.ErrConcurrentModification
	}
	return nil
}

func (s *txStore) DeleteItem(ctx context.Context, itemID string, expected float64) error {
	res := s.tx.WithContext(ctx).
		Where("id = ? AND quantity = ?", itemID, expected).
		Delete(&GroceryItemModel{})
	if res.Error != nil {
		return fmt.Errorf("delete grocery_items: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fulfillment.ErrConcurrentModification
	}
	return nil
}

func (s *txStore) InsertMealPlan(ctx context.Context, plan *mealplan.MealPlan) error {
	if err := s.tx.WithContext(ctx).Create(planToModel(plan)).Error; err != nil {
		return fmt.Errorf("insert meal_plans: %w", err)
	}
	return nil
}
