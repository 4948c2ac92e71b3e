package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instrument gives small use cases the same span, RED metrics and
// use_case_done log line that the larger ones write out by hand.
type Instrument struct {
	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstrument(service string, tel observability.Observability) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Logger is the service logger, for callers that log outside a use case.
func (in *Instrument) Logger() observability.Logger { return in.log }

// Outcome collects what a use case reports about itself.
type Outcome struct {
	outcome string
	status  string
	fields  []observability.Field
}

// Fail sets the outcome label ("error", "rejected") and the status text.
func (o *Outcome) Fail(outcome, status string) {
	o.outcome, o.status = outcome, status
}

func (o *Outcome) Status(status string) { o.status = status }

func (o *Outcome) With(fields ...observability.Field) { o.fields = append(o.fields, fields...) }

// Run executes fn inside a span named UC.<name> and records the result.
func (in *Instrument) Run(ctx context.Context, useCase, name string, fn func(ctx context.Context, o *Outcome) error, attrs ...attribute.KeyValue) (err error) {
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	ctx, span := in.tracer.Start(ctx, spanPrefix+name, append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)...)
	start := time.Now()
	o := &Outcome{outcome: "success", status: "OK"}

	defer func() {
		r := recover()
		if r != nil {
			o.outcome, o.status = "error", "PANIC"
			err = fmt.Errorf("panic: %v", r)
		}
		lat := time.Since(start).Seconds()
		if err != nil && o.outcome == "success" {
			o.outcome, o.status = "error", "UNEXPECTED"
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, o.status)
		} else {
			span.SetStatus(codes.Ok, o.status)
		}
		span.End()

		in.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", o.outcome),
		)
		in.durHistogram.Observe(lat, observability.L("use_case", useCase))

		fields := append([]observability.Field{
			observability.F("outcome", o.outcome),
			observability.F("status", o.status),
			observability.F("latency_seconds", lat),
		}, o.fields...)
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
		if r != nil {
			panic(r)
		}
	}()

	return fn(logctx.With(ctx, logger), o)
}
