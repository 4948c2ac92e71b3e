package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type nopLogger struct{}

func (nopLogger) With(_ ...Field) Logger { return nopLogger{} }
func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

// NopLogger returns a logger that discards all logs. Useful as a safe fallback.
func NopLogger() Logger { return nopLogger{} }

type nopTracer struct{}

func (nopTracer) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

// NopTracer returns a tracer that simply propagates the existing span from the context.
func NopTracer() Tracer { return nopTracer{} }

type nopCounter struct{}

func (nopCounter) Add(float64, ...Label) {}

// NopCounter returns a counter that records nothing.
func NopCounter() Counter { return nopCounter{} }

type nopHistogram struct{}

func (nopHistogram) Observe(float64, ...Label) {}

// NopHistogram returns a histogram that records nothing.
func NopHistogram() Histogram { return nopHistogram{} }

type nopMetrics struct{}

func (nopMetrics) Counter(MetricKey) Counter     { return nopCounter{} }
func (nopMetrics) Histogram(MetricKey) Histogram { return nopHistogram{} }

// NopMetrics hands out instruments that record nothing.
func NopMetrics() Metrics { return nopMetrics{} }

type nop struct{}

func (nop) Tracer() Tracer   { return nopTracer{} }
func (nop) Logger() Logger   { return nopLogger{} }
func (nop) Metrics() Metrics { return nopMetrics{} }

// Nop bundles the nop tracer, logger and metrics. Tests and optional wiring use it.
func Nop() Observability { return nop{} }
