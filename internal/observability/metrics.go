package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/akademi/egitim-portal/internal/jobs"
)

// Metrics collects the portal's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	guardDecisions  *prometheus.CounterVec
	implicitLogouts *prometheus.CounterVec
	eventsEnqueued  *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	guard := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_guard_decisions_total",
		Help: "Route guard outcomes by state.",
	}, []string{"state"})
	logouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_implicit_logouts_total",
		Help: "Sessions cleared because the backend answered 401 or 403.",
	}, []string{"status"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_frontend_events_total",
		Help: "Frontend events handed to the queue by action and result.",
	}, []string{"action", "result"})
	registry.MustRegister(requests, duration, guard, logouts, events)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		guardDecisions:  guard,
		implicitLogouts: logouts,
		eventsEnqueued:  events,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveGuard counts one route guard decision.
func (m *Metrics) ObserveGuard(state string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(state).Inc()
}

// ObserveImplicitLogout counts a session cleared by the backend-failure hook.
func (m *Metrics) ObserveImplicitLogout(status int) {
	if m == nil {
		return
	}
	m.implicitLogouts.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveEvent counts a frontend event enqueue attempt.
func (m *Metrics) ObserveEvent(action string, err error) {
	if m == nil {
		return
	}
	result := "enqueued"
	if err != nil {
		result = "failed"
	}
	m.eventsEnqueued.WithLabelValues(action, result).Inc()
}

// Jobs exposes the job collectors registered on the same registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
