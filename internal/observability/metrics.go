package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the web and worker processes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	syncUploads     *prometheus.CounterVec
	adjustments     *prometheus.CounterVec
	summaryCache    *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics initialises the registry and the application metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zaiko_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zaiko_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zaiko_sync_uploads_total",
		Help: "Sync file submissions by result.",
	}, []string{"result"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zaiko_adjustments_total",
		Help: "Inventory adjustments by kind and final state.",
	}, []string{"kind", "result"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zaiko_summary_cache_total",
		Help: "Monthly summary cache lookups by outcome.",
	}, []string{"outcome"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zaiko_jobs_total",
		Help: "Background jobs by task type and result.",
	}, []string{"task", "result"})
	registry.MustRegister(requests, duration, uploads, adjustments, cache, jobs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		syncUploads:     uploads,
		adjustments:     adjustments,
		summaryCache:    cache,
		jobsTotal:       jobs,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
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

// ObserveSyncUpload counts one sync file submission.
func (m *Metrics) ObserveSyncUpload(result string) {
	if m == nil {
		return
	}
	m.syncUploads.WithLabelValues(result).Inc()
}

// ObserveAdjustment counts one purchase or sell submission.
func (m *Metrics) ObserveAdjustment(kind, result string) {
	if m == nil {
		return
	}
	m.adjustments.WithLabelValues(kind, result).Inc()
}

// ObserveSummaryCache counts a summary cache hit or miss.
func (m *Metrics) ObserveSummaryCache(outcome string) {
	if m == nil {
		return
	}
	m.summaryCache.WithLabelValues(outcome).Inc()
}

// ObserveJob counts one processed background task.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobsTotal.WithLabelValues(task, result).Inc()
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
