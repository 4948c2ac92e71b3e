package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pantrychef/pantry/internal/application"
	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	domain "github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/observability"
)

const (
	recipeService  = "recipe-service"
	generatorPeer  = "text_generation"
	maxSuggestions = 3
)

var (
	ErrNoGroceries = errors.New("recipe: no grocery items provided")
	ErrRateLimited = errors.New("recipe: generation rate limit exceeded")
)

// View is a saved recipe together with how the user's current stock covers it.
type View struct {
	Recipe       *domain.Recipe
	Availability []domfulfillment.Availability
	CanCook      bool
}

type Service struct {
	recipes   domain.Repository
	groceries grocery.Repository
	generator domain.Generator
	limiter   RateLimiter
	ids       IDGenerator
	in        *application.Instrument

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewService(
	recipes domain.Repository,
	groceries grocery.Repository,
	generator domain.Generator,
	limiter RateLimiter,
	ids IDGenerator,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	if limiter == nil {
		limiter = unlimited{}
	}
	return &Service{
		recipes:      recipes,
		groceries:    groceries,
		generator:    generator,
		limiter:      limiter,
		ids:          ids,
		in:           application.NewInstrument(recipeService, tel),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Generate asks the text generator for recipes that use the user's stock.
func (s *Service) Generate(ctx context.Context, userID, mealType string) (out []domain.Candidate, err error) {
	mealType = strings.TrimSpace(strings.ToLower(mealType))
	if mealType == "" {
		mealType = domain.MealTypeAny
	}

	err = s.in.Run(ctx, "recipe.generate", "GenerateRecipes", func(ctx context.Context, o *application.Outcome) error {
		if !s.limiter.Allow(userID) {
			o.Fail("rejected", "RATE_LIMITED")
			return ErrRateLimited
		}

		stock, err := s.groceries.ListByUser(ctx, userID)
		if err != nil {
			o.Fail("error", "REPO_LIST_FAILED")
			return fmt.Errorf("recipe: list groceries: %w", err)
		}
		if len(stock) == 0 {
			o.Fail("rejected", "NO_GROCERIES")
			return ErrNoGroceries
		}

		lines := make([]string, 0, len(stock))
		for _, it := range stock {
			lines = append(lines, fmt.Sprintf("%s (%s %s)", it.Name, domfulfillment.FormatQuantity(it.Quantity), it.Unit))
		}

		start := time.Now()
		out, err = s.generator.Generate(ctx, lines, mealType)
		extOutcome := "success"
		if err != nil {
			extOutcome = "error"
		}
		s.extCounter.Add(1,
			observability.L("peer", generatorPeer),
			observability.L("endpoint", "generate"),
			observability.L("outcome", extOutcome),
		)
		s.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", generatorPeer),
			observability.L("endpoint", "generate"),
		)
		if err != nil {
			o.Fail("error", "GENERATION_FAILED")
			return err
		}

		if len(out) > maxSuggestions {
			out = out[:maxSuggestions]
		}
		o.With(observability.F("count", len(out)), observability.F("meal_type", mealType))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save stores a generated candidate as the user's recipe.
func (s *Service) Save(ctx context.Context, userID string, c domain.Candidate) (rec *domain.Recipe, err error) {
	err = s.in.Run(ctx, "recipe.save", "SaveRecipe", func(ctx context.Context, o *application.Outcome) error {
		rec, err = s.build(userID, c)
		if err != nil {
			o.Fail("rejected", "VALIDATION_FAILED")
			return err
		}
		if err := s.recipes.Create(ctx, rec); err != nil {
			o.Fail("error", "REPO_INSERT_FAILED")
			return fmt.Errorf("recipe: create: %w", err)
		}
		o.With(observability.F("recipe_id", rec.ID), observability.F("ingredients", len(rec.Ingredients)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) build(userID string, c domain.Candidate) (*domain.Recipe, error) {
	rec, err := domain.New(s.ids.NewID(), userID, c.Title, c.Servings)
	if err != nil {
		return nil, err
	}
	rec.Description = strings.TrimSpace(c.Description)
	rec.SetSteps(c.Instructions)
	if c.PrepTime > 0 {
		v := c.PrepTime
		rec.PrepTime = &v
	}
	if c.CookTime > 0 {
		v := c.CookTime
		rec.CookTime = &v
	}
	if len(c.Ingredients) == 0 {
		return nil, domain.ErrNoIngredients
	}
	for _, ing := range c.Ingredients {
		if err := rec.AddIngredient(s.ids.NewID(), ing.Name, ing.Quantity, ing.Unit); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, userID string) (out []*domain.Recipe, err error) {
	err = s.in.Run(ctx, "recipe.list", "ListRecipes", func(ctx context.Context, o *application.Outcome) error {
		out, err = s.recipes.ListByUser(ctx, userID)
		if err != nil {
			o.Fail("error", "REPO_LIST_FAILED")
			return fmt.Errorf("recipe: list: %w", err)
		}
		o.With(observability.F("count", len(out)))
		return nil
	})
	return out, err
}

// Get returns the recipe and checks it against the user's current stock.
func (s *Service) Get(ctx context.Context, userID, id string) (view *View, err error) {
	err = s.in.Run(ctx, "recipe.get", "GetRecipe", func(ctx context.Context, o *application.Outcome) error {
		rec, err := s.owned(ctx, o, userID, id)
		if err != nil {
			return err
		}
		stock, err := s.groceries.ListByUser(ctx, userID)
		if err != nil {
			o.Fail("error", "REPO_LIST_FAILED")
			return fmt.Errorf("recipe: list groceries: %w", err)
		}

		avail := domfulfillment.CheckAvailability(rec.Ingredients, stock)
		canCook := true
		for _, a := range avail {
			if !a.Sufficient {
				canCook = false
				break
			}
		}
		view = &View{Recipe: rec, Availability: avail, CanCook: canCook}
		o.With(observability.F("can_cook", canCook))
		return nil
	}, attribute.String("recipe.id", id))
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.in.Run(ctx, "recipe.delete", "DeleteRecipe", func(ctx context.Context, o *application.Outcome) error {
		if _, err := s.owned(ctx, o, userID, id); err != nil {
			return err
		}
		if err := s.recipes.Delete(ctx, id); err != nil {
			o.Fail("error", "REPO_DELETE_FAILED")
			return fmt.Errorf("recipe: delete: %w", err)
		}
		return nil
	}, attribute.String("recipe.id", id))
}

func (s *Service) owned(ctx context.Context, o *application.Outcome, userID, id string) (*domain.Recipe, error) {
	rec, err := s.recipes.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		o.Fail("rejected", "NOT_FOUND")
		return nil, domain.ErrNotFound
	case err != nil:
		o.Fail("error", "REPO_GET_FAILED")
		return nil, fmt.Errorf("recipe: get: %w", err)
	case rec.UserID != userID:
		o.Fail("rejected", "NOT_FOUND")
		return nil, domain.ErrNotFound
	}
	return rec, nil
}
