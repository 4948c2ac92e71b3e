package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pantrychef/pantry/internal/domain/recipe"
)

type RecipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func orderedIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// Create inserts the recipe and its ingredients in one transaction.
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	if err := r.db.WithContext(ctx).Create(recipeToModel(rec)).Error; err != nil {
		return fmt.Errorf("recipe repository: create: %w", err)
	}
	return nil
}

func (r *RecipeRepository) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	var m RecipeModel
	err := r.db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrNotFound
		}
		return nil, fmt.Errorf("recipe repository: get: %w", err)
	}
	return modelToRecipe(&m), nil
}

func (r *RecipeRepository) ListByUser(ctx context.Context, userID string) ([]*recipe.Recipe, error) {
	var models []RecipeModel
	if err := r.db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("recipe repository: list: %w", err)
	}
	out := make([]*recipe.Recipe, 0, len(models))
	for i := range models {
		out = append(out, modelToRecipe(&models[i]))
	}
	return out, nil
}

// Delete removes the recipe with its ingredients and meal plans. The child
// rows are deleted explicitly so the result does not depend on the driver
// enforcing ON DELETE CASCADE.
func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&MealPlanModel{}).Error; err != nil {
			return fmt.Errorf("recipe repository: delete meal plans: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredientModel{}).Error; err != nil {
			return fmt.Errorf("recipe repository: delete ingredients: %w", err)
		}
		res := tx.Delete(&RecipeModel{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("recipe repository: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return recipe.ErrNotFound
		}
		return nil
	})
}
