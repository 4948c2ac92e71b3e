package gormstore

import (
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

func itemToModel(it *grocery.Item) *GroceryItemModel {
	return &GroceryItemModel{
		ID:           it.ID,
		UserID:       it.UserID,
		Name:         it.Name,
		Quantity:     it.Quantity,
		Unit:         it.Unit,
		Category:     it.Category,
		PurchaseDate: it.PurchaseDate,
		ExpiryDate:   it.ExpiryDate,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

func modelToItem(m *GroceryItemModel) *grocery.Item {
	return &grocery.Item{
		ID:           m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		Quantity:     m.Quantity,
		Unit:         m.Unit,
		Category:     m.Category,
		PurchaseDate: m.PurchaseDate,
		ExpiryDate:   m.ExpiryDate,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func recipeToModel(r *recipe.Recipe) *RecipeModel {
	m := &RecipeModel{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Description:  r.Description,
		Instructions: r.Instructions,
		PrepTime:     r.PrepTime,
		CookTime:     r.CookTime,
		Servings:     r.Servings,
		CreatedAt:    r.CreatedAt,
	}
	for i, ing := range r.Ingredients {
		m.Ingredients = append(m.Ingredients, RecipeIngredientModel{
			ID:        ing.ID,
			RecipeID:  r.ID,
			Name:      ing.Name,
			Quantity:  ing.Quantity,
			Unit:      ing.Unit,
			Position:  i,
			CreatedAt: ing.CreatedAt,
		})
	}
	return m
}

func modelToRecipe(m *RecipeModel) *recipe.Recipe {
	r := &recipe.Recipe{
		ID:           m.ID,
		UserID:       m.UserID,
		Title:        m.Title,
		Description:  m.Description,
		Instructions: m.Instructions,
		PrepTime:     m.PrepTime,
		CookTime:     m.CookTime,
		Servings:     m.Servings,
		CreatedAt:    m.CreatedAt.UTC(),
	}
	r.Ingredients = modelsToIngredients(m.Ingredients)
	return r
}

func modelsToIngredients(ms []RecipeIngredientModel) []recipe.Ingredient {
	out := make([]recipe.Ingredient, 0, len(ms))
	for _, m := range ms {
		out = append(out, recipe.Ingredient{
			ID:        m.ID,
			RecipeID:  m.RecipeID,
			Name:      m.Name,
			Quantity:  m.Quantity,
			Unit:      m.Unit,
			CreatedAt: m.CreatedAt.UTC(),
		})
	}
	return out
}

func planToModel(p *mealplan.MealPlan) *MealPlanModel {
	return &MealPlanModel{
		ID:          p.ID,
		UserID:      p.UserID,
		RecipeID:    p.RecipeID,
		PlannedDate: p.PlannedDate,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}

func modelToPlan(m *MealPlanModel) *mealplan.MealPlan {
	return &mealplan.MealPlan{
		ID:          m.ID,
		UserID:      m.UserID,
		RecipeID:    m.RecipeID,
		PlannedDate: m.PlannedDate.UTC(),
		Status:      mealplan.Status(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}
