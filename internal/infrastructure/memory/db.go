package memory

import (
	"sort"
	"sync"

	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
)

// DB holds every table of the in-memory store behind one lock so that the
// unit of work can stage and apply a cook atomically.
type DB struct {
	mu      sync.RWMutex
	items   map[string]*grocery.Item
	recipes map[string]*recipe.Recipe
	plans   map[string]*mealplan.MealPlan
}

func NewDB() *DB {
	return &DB{
		items:   make(map[string]*grocery.Item),
		recipes: make(map[string]*recipe.Recipe),
		plans:   make(map[string]*mealplan.MealPlan),
	}
}

func (db *DB) Groceries() *GroceryRepository { return &GroceryRepository{db: db} }

func (db *DB) Recipes() *RecipeRepository { return &RecipeRepository{db: db} }

func (db *DB) MealPlans() *MealPlanRepository { return &MealPlanRepository{db: db} }

func (db *DB) UnitOfWork() *UnitOfWork { return &UnitOfWork{db: db} }

// newestFirst orders by created_at descending, id descending on ties.
func newestFirst[T any](rows []T, created func(T) (int64, string)) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, idi := created(rows[i])
		tj, idj := created(rows[j])
		if ti != tj {
			return ti > tj
		}
		return idi > idj
	})
}
