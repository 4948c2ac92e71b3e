package mealplan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pantrychef/pantry/internal/application"
	domain "github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/observability"
)

const mealPlanService = "mealplan-service"

type IDGenerator interface {
	NewID() string
}

// Service lists meal plans and manages plans that have not been cooked yet.
// Completed plans are only ever written by the cook use case.
type Service struct {
	plans   domain.Repository
	recipes recipe.Repository
	ids     IDGenerator
	in      *application.Instrument
}

func NewService(plans domain.Repository, recipes recipe.Repository, ids IDGenerator, tel observability.Observability) *Service {
	return &Service{
		plans:   plans,
		recipes: recipes,
		ids:     ids,
		in:      application.NewInstrument(mealPlanService, tel),
	}
}

func (s *Service) List(ctx context.Context, userID string) (out []*domain.MealPlan, err error) {
	err = s.in.Run(ctx, "mealplan.list", "ListMealPlans", func(ctx context.Context, o *application.Outcome) error {
		out, err = s.plans.ListByUser(ctx, userID)
		if err != nil {
			o.Fail("error", "REPO_LIST_FAILED")
			return fmt.Errorf("mealplan: list: %w", err)
		}
		o.With(observability.F("count", len(out)))
		return nil
	})
	return out, err
}

// Schedule plans one of the user's recipes for a date.
func (s *Service) Schedule(ctx context.Context, userID, recipeID string, date time.Time) (plan *domain.MealPlan, err error) {
	err = s.in.Run(ctx, "mealplan.schedule", "ScheduleMeal", func(ctx context.Context, o *application.Outcome) error {
		if recipeID == "" {
			o.Fail("rejected", "RECIPE_ID_REQUIRED")
			return domain.ErrRecipeRequired
		}
		rec, err := s.recipes.Get(ctx, recipeID)
		switch {
		case errors.Is(err, recipe.ErrNotFound) || (err == nil && rec.UserID != userID):
			o.Fail("rejected", "RECIPE_NOT_FOUND")
			return recipe.ErrNotFound
		case err != nil:
			o.Fail("error", "REPO_GET_FAILED")
			return fmt.Errorf("mealplan: get recipe: %w", err)
		}

		plan, err = domain.New(s.ids.NewID(), userID, recipeID, date)
		if err != nil {
			o.Fail("rejected", "VALIDATION_FAILED")
			return err
		}
		if err := s.plans.Insert(ctx, plan); err != nil {
			o.Fail("error", "REPO_INSERT_FAILED")
			return fmt.Errorf("mealplan: insert: %w", err)
		}
		return nil
	}, attribute.String("recipe.id", recipeID))
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Cancel(ctx context.Context, userID, id string) (plan *domain.MealPlan, err error) {
	err = s.in.Run(ctx, "mealplan.cancel", "CancelMeal", func(ctx context.Context, o *application.Outcome) error {
		plan, err = s.plans.Get(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound) || (err == nil && plan.UserID != userID):
			o.Fail("rejected", "NOT_FOUND")
			return domain.ErrNotFound
		case err != nil:
			o.Fail("error", "REPO_GET_FAILED")
			return fmt.Errorf("mealplan: get: %w", err)
		}
		if err := plan.Cancel(); err != nil {
			o.Fail("rejected", "INVALID_STATE_TRANSITION")
			return err
		}
		if err := s.plans.Update(ctx, plan); err != nil {
			o.Fail("error", "REPO_UPDATE_FAILED")
			return fmt.Errorf("mealplan: update: %w", err)
		}
		return nil
	}, attribute.String("meal_plan.id", id))
	if err != nil {
		return nil, err
	}
	return plan, nil
}
