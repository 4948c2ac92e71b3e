package httppresentation

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apprecipe "github.com/pantrychef/pantry/internal/application/recipe"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

type generateRecipesRequest struct {
	MealType string `json:"mealType" validate:"omitempty,oneof=any breakfast lunch dinner snack dessert"`
}

type generateRecipesResponse struct {
	Recipes []recipe.Candidate `json:"recipes"`
}

type ingredientResponse struct {
	ID             string    `json:"id"`
	RecipeID       string    `json:"recipe_id"`
	IngredientName string    `json:"ingredient_name"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	CreatedAt      time.Time `json:"created_at"`
}

type recipeResponse struct {
	ID           string               `json:"id"`
	UserID       string               `json:"user_id"`
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	Instructions string               `json:"instructions"`
	Steps        []string             `json:"steps"`
	PrepTime     *int                 `json:"prep_time,omitempty"`
	CookTime     *int                 `json:"cook_time,omitempty"`
	TotalTime    *int                 `json:"total_time,omitempty"`
	Servings     int                  `json:"servings"`
	CreatedAt    time.Time            `json:"created_at"`
	Ingredients  []ingredientResponse `json:"ingredients"`
}

type availabilityLine struct {
	IngredientName string  `json:"ingredient_name"`
	Required       float64 `json:"required"`
	Unit           string  `json:"unit"`
	GroceryItemID  string  `json:"grocery_item_id,omitempty"`
	Available      float64 `json:"available"`
	AvailableUnit  string  `json:"available_unit,omitempty"`
	Sufficient     bool    `json:"sufficient"`
}

type availabilityResponse struct {
	Recipe       recipeResponse     `json:"recipe"`
	CanCook      bool               `json:"can_cook"`
	Availability []availabilityLine `json:"availability"`
}

func toRecipeResponse(rec *recipe.Recipe) recipeResponse {
	out := recipeResponse{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Title:        rec.Title,
		Description:  rec.Description,
		Instructions: rec.Instructions,
		Steps:        rec.Steps(),
		PrepTime:     rec.PrepTime,
		CookTime:     rec.CookTime,
		Servings:     rec.Servings,
		CreatedAt:    rec.CreatedAt,
		Ingredients:  make([]ingredientResponse, 0, len(rec.Ingredients)),
	}
	if total, ok := rec.TotalTime(); ok {
		out.TotalTime = &total
	}
	for _, ing := range rec.Ingredients {
		out.Ingredients = append(out.Ingredients, ingredientResponse{
			ID:             ing.ID,
			RecipeID:       ing.RecipeID,
			IngredientName: ing.Name,
			Quantity:       ing.Quantity,
			Unit:           ing.Unit,
			CreatedAt:      ing.CreatedAt,
		})
	}
	return out
}

func (h *Handler) handleGenerateRecipes(w http.ResponseWriter, r *http.Request) {
	var req generateRecipesRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	out, err := h.deps.Recipes.Generate(r.Context(), UserID(r.Context()), req.MealType)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateRecipesResponse{Recipes: out})
}

// handleSaveRecipe stores a generated candidate as sent back by the client.
func (h *Handler) handleSaveRecipe(w http.ResponseWriter, r *http.Request) {
	var c recipe.Candidate
	if err := decodeJSON(r, &c); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	rec, err := h.deps.Recipes.Save(r.Context(), UserID(r.Context()), c)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeResponse(rec))
}

func (h *Handler) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recs, err := h.deps.Recipes.List(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]recipeResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecipeResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Recipes.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(view.Recipe))
}

func (h *Handler) handleRecipeAvailability(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Recipes.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(view))
}

func (h *Handler) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Recipes.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAvailabilityResponse(view *apprecipe.View) availabilityResponse {
	out := availabilityResponse{
		Recipe:       toRecipeResponse(view.Recipe),
		CanCook:      view.CanCook,
		Availability: make([]availabilityLine, 0, len(view.Availability)),
	}
	for _, a := range view.Availability {
		line := availabilityLine{
			IngredientName: a.Ingredient.Name,
			Required:       a.Ingredient.Quantity,
			Unit:           a.Ingredient.Unit,
			Sufficient:     a.Sufficient,
		}
		if a.Item != nil {
			line.GroceryItemID = a.Item.ID
			line.Available = a.Item.Quantity
			line.AvailableUnit = a.Item.Unit
		}
		out.Availability = append(out.Availability, line)
	}
	return out
}
