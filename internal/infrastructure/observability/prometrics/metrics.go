// Package prometrics backs the observability metric ports with Prometheus
// vectors registered on a caller supplied registerer.
package prometrics

import (
	"sync"

	"github.com/pantrychef/pantry/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type Registry struct {
	reg        prometheus.Registerer
	namespace  string
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// New uses prometheus.DefaultRegisterer when reg is nil.
func New(reg prometheus.Registerer, namespace string) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Registry{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Instruments registers every metric the service emits.
func (r *Registry) Instruments() (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests:  r.Counter(string(observability.MUsecaseRequests), "Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests:     r.Counter(string(observability.MHTTPRequests), "Total number of HTTP requests.", "method", "route", "status"),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests), "Calls to external dependencies.", "peer", "endpoint", "outcome"),
		observability.MGroceryDepleted:  r.Counter(string(observability.MGroceryDepleted), "Grocery rows removed because cooking used them up."),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration:         r.Histogram(string(observability.MUsecaseDuration), "Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
		observability.MHTTPRequestDuration:     r.Histogram(string(observability.MHTTPRequestDuration), "Duration of HTTP requests in seconds.", prometheus.DefBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration), "Duration of external dependency calls in seconds.", []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}, "peer", "endpoint"),
	}
	return counters, histograms
}

func (r *Registry) Counter(name, help string, labelKeys ...string) observability.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cv, ok := r.counters[name]; ok {
		return &counter{v: cv}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: r.namespace, Name: name, Help: help}, labelKeys)
	r.reg.MustRegister(cv)
	r.counters[name] = cv
	return &counter{v: cv}
}

func (r *Registry) Histogram(name, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hv, ok := r.histograms[name]; ok {
		return &histogram{v: hv}
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: r.namespace, Name: name, Help: help, Buckets: buckets}, labelKeys)
	r.reg.MustRegister(hv)
	r.histograms[name] = hv
	return &histogram{v: hv}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}
