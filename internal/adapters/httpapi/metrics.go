package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/core/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service's Prometheus collectors on a private registry
// so tests can run handlers side by side without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	validationFailures *prometheus.CounterVec
}

// NewMetrics registers the HTTP and validation collectors. When dispatcher
// is non-nil its counters are exported as gauges read on scrape.
func NewMetrics(dispatcher func() usecase.OutboxDispatcherMetrics) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "officeapi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "officeapi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "officeapi",
			Subsystem: "validation",
			Name:      "failures_total",
			Help:      "Office command validation failures by parameter and code.",
		}, []string{"parameter", "code"}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.validationFailures)

	if dispatcher != nil {
		registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "officeapi",
				Subsystem: "outbox",
				Name:      "dispatch_success_total",
				Help:      "Outbox events dispatched successfully.",
			}, func() float64 { return float64(dispatcher().DispatchSuccessTotal) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "officeapi",
				Subsystem: "outbox",
				Name:      "dispatch_failure_total",
				Help:      "Outbox dispatch attempts that failed.",
			}, func() float64 { return float64(dispatcher().DispatchFailureTotal) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "officeapi",
				Subsystem: "outbox",
				Name:      "dispatch_dead_total",
				Help:      "Outbox events moved to the dead-letter state.",
			}, func() float64 { return float64(dispatcher().DispatchDeadTotal) }),
		)
	}

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records one observation per served request, labelled with the
// chi route pattern rather than the raw path to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeValidationFailure(parameter, code string) {
	m.validationFailures.WithLabelValues(parameter, code).Inc()
}
