package mealplan

import (
	"errors"
	"time"
)

var (
	ErrNotFound               = errors.New("meal plan: not found")
	ErrInvalidStateTransition = errors.New("meal plan: invalid state transition")
	ErrRecipeRequired         = errors.New("meal plan: recipe id is required")
)

type Status string

const (
	StatusPlanned   Status = "planned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// MealPlan records that a recipe is planned for, or was cooked on, a date.
// A completed plan is the durable evidence that a cook-and-deduct succeeded.
type MealPlan struct {
	ID          string
	UserID      string
	RecipeID    string
	PlannedDate time.Time
	Status      Status
	CreatedAt   time.Time
}

func New(id, userID, recipeID string, plannedDate time.Time) (*MealPlan, error) {
	if recipeID == "" {
		return nil, ErrRecipeRequired
	}
	return &MealPlan{
		ID:          id,
		UserID:      userID,
		RecipeID:    recipeID,
		PlannedDate: plannedDate.UTC(),
		Status:      StatusPlanned,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NewCompleted builds the completion record written at the end of a cook.
func NewCompleted(id, userID, recipeID string, cookedAt time.Time) (*MealPlan, error) {
	mp, err := New(id, userID, recipeID, cookedAt)
	if err != nil {
		return nil, err
	}
	if err := mp.Complete(); err != nil {
		return nil, err
	}
	return mp, nil
}

func (m *MealPlan) Complete() error {
	next, err := m.state().Complete()
	if err != nil {
		return err
	}
	m.Status = next.Status()
	return nil
}

func (m *MealPlan) Cancel() error {
	next, err := m.state().Cancel()
	if err != nil {
		return err
	}
	m.Status = next.Status()
	return nil
}

func (m *MealPlan) Clone() *MealPlan {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

func (m *MealPlan) state() State {
	return stateFor(m.Status)
}
