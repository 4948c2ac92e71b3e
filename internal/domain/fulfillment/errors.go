package fulfillment

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrValidation             = errors.New("fulfillment: recipe id is required")
	ErrUnauthorized           = errors.New("fulfillment: unauthorized")
	ErrConcurrentModification = errors.New("fulfillment: stock changed concurrently")
)

// InsufficientStockError names the first ingredient the stock could not cover.
// Found is false when no stock row matched at all.
type InsufficientStockError struct {
	IngredientName string
	Required       float64
	RequiredUnit   string
	Available      float64
	AvailableUnit  string
	Found          bool
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient %s. Required: %s %s, Available: %s %s",
		e.IngredientName,
		FormatQuantity(e.Required), e.RequiredUnit,
		FormatQuantity(e.Available), e.AvailableUnit,
	)
}

// FormatQuantity prints a quantity in its shortest decimal form: 2, 1.5, 0.25.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// Stage names the store step a StoreError happened in.
type Stage string

const (
	StageLock             Stage = "lock"
	StageFetchIngredients Stage = "fetch_ingredients"
	StageFetchStock       Stage = "fetch_stock"
	StageUpdateStock      Stage = "update_stock"
	StageDeleteStock      Stage = "delete_stock"
	StageRecordMealPlan   Stage = "record_meal_plan"
	StageCommit           Stage = "commit"
)

// Message is the client-facing text for a failure in this stage.
func (s Stage) Message() string {
	switch s {
	case StageFetchIngredients:
		return "Failed to fetch recipe ingredients"
	case StageFetchStock:
		return "Failed to fetch grocery items"
	case StageUpdateStock:
		return "Failed to update grocery items"
	case StageDeleteStock:
		return "Failed to delete grocery items"
	case StageRecordMealPlan:
		return "Failed to record meal plan"
	default:
		return "Internal server error"
	}
}

// StoreError wraps a record store failure with the stage it happened in.
type StoreError struct {
	Stage Stage
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("fulfillment: %s: %v", e.Stage, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore tags err with stage unless it already carries one.
func WrapStore(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Stage: stage, Err: err}
}
