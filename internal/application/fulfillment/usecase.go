package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	fulfillmentService = "fulfillment-service"
	useCaseCook        = "fulfillment.cook"
	spanPrefix         = "UC."
	publishPeer        = "outbox"
	publishTimeout     = 300 * time.Millisecond
)

type CookRecipeInput struct {
	UserID   string
	RecipeID string
}

type CookRecipeResult struct {
	MealPlanID string
	Updated    int
	Deleted    int
}

// CookRecipeUseCase checks the user's stock against a recipe, deducts what the
// recipe consumes and records a completed meal plan, all in one unit of work.
type CookRecipeUseCase struct {
	uow       domfulfillment.UnitOfWork
	locker    Locker
	ids       IDGenerator
	publisher domoutbox.Publisher
	now       func() time.Time
	tracer    observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewCookRecipeUseCase(
	uow domfulfillment.UnitOfWork,
	locker Locker,
	ids IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CookRecipeUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metricsProvider := tel.Metrics()

	return &CookRecipeUseCase{
		uow:          uow,
		locker:       locker,
		ids:          ids,
		publisher:    publisher,
		now:          func() time.Time { return time.Now().UTC() },
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", fulfillmentService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

// WithClock overrides the time source used for updated_at and planned_date.
func (uc *CookRecipeUseCase) WithClock(now func() time.Time) *CookRecipeUseCase {
	uc.now = now
	return uc
}

func (uc *CookRecipeUseCase) Execute(ctx context.Context, cmd CookRecipeInput) (_ *CookRecipeResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCook),
		observability.F("user_id", cmd.UserID),
		observability.F("recipe_id", cmd.RecipeID),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"CookRecipe",
		attribute.String("use_case", useCaseCook),
		attribute.String("recipe.id", cmd.RecipeID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var publishErr error
	var plan *domfulfillment.Plan

	defer func() {
		r := recover()
		if r != nil {
			outcome, statusText = "error", "PANIC"
			err = fmt.Errorf("panic: %v", r)
			plan = nil
		}
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCook),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseCook),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if plan != nil {
			fields = append(fields,
				observability.F("updated", len(plan.Updates)),
				observability.F("deleted", len(plan.Deletes)),
			)
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
		if r != nil {
			panic(r)
		}
	}()

	if strings.TrimSpace(cmd.UserID) == "" {
		outcome, statusText = "error", "UNAUTHENTICATED"
		return nil, domfulfillment.ErrUnauthorized
	}
	if strings.TrimSpace(cmd.RecipeID) == "" {
		outcome, statusText = "error", "RECIPE_ID_REQUIRED"
		return nil, domfulfillment.ErrValidation
	}

	release, lockErr := uc.locker.Lock(ctx, lockKey(cmd.UserID))
	if lockErr != nil {
		outcome, statusText = "error", "LOCK_FAILED"
		return nil, domfulfillment.WrapStore(domfulfillment.StageLock, lockErr)
	}
	defer release()

	var mp *mealplan.MealPlan
	var fnErr error
	err = uc.uow.Do(ctx, func(ctx context.Context, store domfulfillment.Store) error {
		plan, mp, fnErr = uc.cook(ctx, store, cmd)
		return fnErr
	})
	if err != nil {
		if fnErr == nil {
			err = domfulfillment.WrapStore(domfulfillment.StageCommit, err)
		}
		plan = nil
		outcome, statusText = classify(err)
		return nil, err
	}

	span.AddEvent("meal.completed",
		trace.WithAttributes(attribute.String("meal_plan.id", mp.ID)),
	)

	// The cook is committed; publish failures are reported but do not undo it.
	publishErr = uc.publish(ctx, mealplan.NewCompletedEvent(mp, plan.Writes(), len(plan.Deletes)))
	for _, d := range plan.Deletes {
		if perr := uc.publish(ctx, grocery.NewDepletedEvent(d.Item)); perr != nil && publishErr == nil {
			publishErr = perr
		}
	}
	if publishErr != nil {
		statusText = "EVENT_PUBLISH_FAILED"
	}

	return &CookRecipeResult{
		MealPlanID: mp.ID,
		Updated:    len(plan.Updates),
		Deleted:    len(plan.Deletes),
	}, nil
}

// cook runs inside the unit of work. Reads happen first and every check
// finishes before the first write.
func (uc *CookRecipeUseCase) cook(ctx context.Context, store domfulfillment.Store, cmd CookRecipeInput) (*domfulfillment.Plan, *mealplan.MealPlan, error) {
	ingredients, err := store.RecipeIngredients(ctx, cmd.UserID, cmd.RecipeID)
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			return nil, nil, fmt.Errorf("fulfillment: %w", err)
		}
		return nil, nil, domfulfillment.WrapStore(domfulfillment.StageFetchIngredients, err)
	}
	stock, err := store.StockByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, nil, domfulfillment.WrapStore(domfulfillment.StageFetchStock, err)
	}

	plan, err := domfulfillment.PlanDeductions(ingredients, stock)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	now := uc.now()
	for _, d := range plan.Updates {
		if err := store.UpdateQuantity(ctx, d.Item.ID, d.Expected, d.Remaining, now); err != nil {
			return nil, nil, domfulfillment.WrapStore(domfulfillment.StageUpdateStock, err)
		}
	}
	for _, d := range plan.Deletes {
		if err := store.DeleteItem(ctx, d.Item.ID, d.Expected); err != nil {
			return nil, nil, domfulfillment.WrapStore(domfulfillment.StageDeleteStock, err)
		}
	}

	mp, err := mealplan.NewCompleted(uc.ids.NewID(), cmd.UserID, cmd.RecipeID, now)
	if err != nil {
		return nil, nil, domfulfillment.WrapStore(domfulfillment.StageRecordMealPlan, err)
	}
	if err := store.InsertMealPlan(ctx, mp); err != nil {
		return nil, nil, domfulfillment.WrapStore(domfulfillment.StageRecordMealPlan, err)
	}
	return plan, mp, nil
}

func (uc *CookRecipeUseCase) publish(ctx context.Context, event domoutbox.Event) error {
	if uc.publisher == nil || event == nil {
		return nil
	}
	endpoint := event.EventName()

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	start := time.Now()
	err := uc.publisher.Publish(pubCtx, event)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	uc.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// classify maps an error to the outcome label and status text of use_case_done.
func classify(err error) (outcome, status string) {
	var short *domfulfillment.InsufficientStockError
	var se *domfulfillment.StoreError
	switch {
	case errors.As(err, &short):
		return "rejected", "INSUFFICIENT_STOCK"
	case errors.Is(err, recipe.ErrNotFound):
		return "rejected", "RECIPE_NOT_FOUND"
	case errors.Is(err, domfulfillment.ErrConcurrentModification):
		return "error", "CONCURRENT_MODIFICATION"
	case errors.As(err, &se):
		return "error", strings.ToUpper(string(se.Stage)) + "_FAILED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "error", "CONTEXT_CANCELED"
	default:
		return "error", "UNEXPECTED"
	}
}
