// Package observability assembles the concrete tracer, logger and metrics
// into the observability.Observability port.
package observability

import (
	"github.com/pantrychef/pantry/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// Unknown keys resolve to no-op instruments so callers never nil-check.
func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	m := &registeredMetrics{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, v := range counters {
		if v != nil {
			m.counters[k] = v
		}
	}
	for k, v := range histograms {
		if v != nil {
			m.histograms[k] = v
		}
	}
	return &provider{tracer: tracer, logger: logger, metrics: m}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }
