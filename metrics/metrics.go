// Package metrics exposes the Prometheus metrics of the web front.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tutorhub/webfront/checkout"
)

const namespace = "tutor"

// Metrics holds the collectors, registered on a registry of its own.
type Metrics struct {
	registry   *prometheus.Registry
	outcomes   *prometheus.CounterVec
	unexpected *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var _ checkout.Metrics = (*Metrics)(nil)

// New creates and registers the collectors, including the Go runtime and
// process ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "outcomes_total",
			Help:      "Checkout operations by flow, operation, resulting phase and error kind.",
		}, []string{"flow", "operation", "phase", "error_kind"}),
		unexpected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "unexpected_status_total",
			Help:      "Statuses outside the known enumeration returned by the backend or the vendor.",
		}, []string{"flow", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.outcomes, m.unexpected, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome counts a checkout operation result.
func (m *Metrics) ObserveOutcome(flow checkout.Kind, operation string, phase checkout.Phase, errKind string) {
	m.outcomes.WithLabelValues(string(flow), operation, string(phase), errKind).Inc()
}

// ObserveUnexpectedStatus counts an unexpected status. Status values come
// from the backend; they are bounded by what it can return.
func (m *Metrics) ObserveUnexpectedStatus(flow checkout.Kind, status string) {
	if len(status) > 64 {
		status = status[:64]
	}
	m.unexpected.WithLabelValues(string(flow), status).Inc()
}

// WatchLedger exposes the number of entries of the reconciliation ledger,
// read through size at every scrape.
func (m *Metrics) WatchLedger(size func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "ledger_entries",
		Help:      "Reconciled returns currently stored in the ledger.",
	}, size))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records requests once routing has resolved their pattern, so
// path parameters do not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
