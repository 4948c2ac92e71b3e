package recipe

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("recipe: not found")
	ErrTitleRequired     = errors.New("recipe: title is required")
	ErrInvalidServings   = errors.New("recipe: servings must be greater than zero")
	ErrIngredientInvalid = errors.New("recipe: ingredient needs a name and a non-negative quantity")
	ErrNoIngredients     = errors.New("recipe: at least one ingredient is required")
)

// stepSeparator joins instruction steps in the stored instructions text.
const stepSeparator = "\n\n"

type Recipe struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Instructions string
	PrepTime     *int
	CookTime     *int
	Servings     int
	CreatedAt    time.Time
	Ingredients  []Ingredient
}

// Ingredient is immutable once stored. Unit is a display label only.
type Ingredient struct {
	ID        string
	RecipeID  string
	Name      string
	Quantity  float64
	Unit      string
	CreatedAt time.Time
}

func New(id, userID, title string, servings int) (*Recipe, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if servings <= 0 {
		return nil, ErrInvalidServings
	}
	return &Recipe{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Servings:  servings,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AddIngredient appends a child row; ids are assigned by the caller.
// A zero quantity ("salt to taste") is kept; it needs the item in stock but consumes none.
func (r *Recipe) AddIngredient(id, name string, quantity float64, unit string) error {
	name = strings.TrimSpace(name)
	if name == "" || quantity < 0 || math.IsNaN(quantity) {
		return ErrIngredientInvalid
	}
	r.Ingredients = append(r.Ingredients, Ingredient{
		ID:        id,
		RecipeID:  r.ID,
		Name:      name,
		Quantity:  quantity,
		Unit:      strings.TrimSpace(unit),
		CreatedAt: r.CreatedAt,
	})
	return nil
}

func (r *Recipe) SetSteps(steps []string) {
	kept := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	r.Instructions = strings.Join(kept, stepSeparator)
}

// Steps splits the stored instructions back into non-empty steps.
func (r *Recipe) Steps() []string {
	parts := strings.Split(r.Instructions, stepSeparator)
	steps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			steps = append(steps, p)
		}
	}
	return steps
}

// TotalTime is prep plus cook time when both are known.
func (r *Recipe) TotalTime() (int, bool) {
	if r.PrepTime == nil || r.CookTime == nil {
		return 0, false
	}
	return *r.PrepTime + *r.CookTime, true
}

func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	if r.PrepTime != nil {
		v := *r.PrepTime
		clone.PrepTime = &v
	}
	if r.CookTime != nil {
		v := *r.CookTime
		clone.CookTime = &v
	}
	return &clone
}
