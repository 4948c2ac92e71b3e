package recipe

import (
	"context"
	"errors"
)

// MealTypeAny asks the generator for recipes without a meal constraint.
const MealTypeAny = "any"

var (
	ErrGeneration  = errors.New("recipe: generation failed")
	ErrUnparseable = errors.New("recipe: generator returned unparseable recipe data")
)

// Candidate is a generated, unsaved recipe.
type Candidate struct {
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	PrepTime           int                   `json:"prepTime"`
	CookTime           int                   `json:"cookTime"`
	Servings           int                   `json:"servings"`
	Ingredients        []CandidateIngredient `json:"ingredients"`
	Instructions       []string              `json:"instructions"`
	MatchedIngredients []string              `json:"matchedIngredients"`
}

type CandidateIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Generator produces candidate recipes from a list of available ingredient
// descriptions such as "Tomatoes (5 kg)". Implementations do not retry.
type Generator interface {
	Generate(ctx context.Context, ingredients []string, mealType string) ([]Candidate, error)
}
