package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrychef/pantry/internal/application"
	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const workerService = "fulfillment_worker"

// Worker cooks recipes requested through recipe.cook_requested events.
type Worker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[CookRecipeInput, *CookRecipeResult]
	tracer     observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewWorker(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[CookRecipeInput, *CookRecipeResult],
	tel observability.Observability,
) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber:   subscriber,
		useCase:      useCase,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", workerService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(domfulfillment.CookRequestedEvent{}.EventName(), w.handleCookRequested)
}

func (w *Worker) handleCookRequested(ctx context.Context, e domoutbox.Event) (err error) {
	const useCase = "fulfillment.worker.cook_requested"
	evt, ok := e.(domfulfillment.CookRequestedEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	ctx, span := w.tracer.Start(ctx, spanPrefix+"CookRequested",
		attribute.String("use_case", useCase),
		attribute.String("event", e.EventName()),
		attribute.String("recipe.id", evt.RecipeID),
	)
	start := time.Now()
	outcome, status := "success", "OK"

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCase),
		observability.F("event", e.EventName()),
		observability.F("request_id", evt.RequestID),
		observability.F("user_id", evt.UserID),
		observability.F("recipe_id", evt.RecipeID),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	var mealPlanID string
	defer func() {
		lat := time.Since(start).Seconds()
		w.count(useCase, outcome)
		w.durHistogram.Observe(lat, observability.L("use_case", useCase))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		}
		if mealPlanID != "" {
			fields = append(fields, observability.F("meal_plan_id", mealPlanID))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)

		if outcome == "error" {
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	res, execErr := w.useCase.Execute(ctx, CookRecipeInput{UserID: evt.UserID, RecipeID: evt.RecipeID})
	if execErr != nil {
		outcome, status = classify(execErr)
		if outcome == "rejected" {
			// A shortfall is a normal answer for an async request, not a handler failure.
			return nil
		}
		return fmt.Errorf("worker: cook recipe: %w", execErr)
	}
	if res != nil {
		mealPlanID = res.MealPlanID
	}
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
}
