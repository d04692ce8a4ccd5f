package console

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joelkehle/triage-console/internal/triage"
)

// Metrics is the console's Prometheus instrumentation. It uses its own
// registry so tests can create as many as they like.
type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	notices         *prometheus.CounterVec
	activePages     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_console_http_requests_total",
			Help: "Console HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_console_http_request_duration_seconds",
			Help:    "Console HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_console_backend_requests_total",
			Help: "Calls to the analysis service by operation and outcome.",
		}, []string{"op", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_console_backend_request_duration_seconds",
			Help:    "Latency of calls to the analysis service.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_console_notices_total",
			Help: "Notices surfaced to users by operation and category.",
		}, []string{"op", "category"}),
		activePages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_console_active_pages",
			Help: "Page sessions currently held in memory.",
		}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.backendRequests,
		m.backendDuration,
		m.notices,
		m.activePages,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency keyed by the matched route
// pattern rather than the raw path, so page tokens do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeNotice(n triage.Notice) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(n.Op, string(n.Category)).Inc()
}

func (m *Metrics) setActivePages(n int) {
	if m == nil {
		return
	}
	m.activePages.Set(float64(n))
}

func (m *Metrics) observeBackend(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, triage.ErrMalformedResponse):
		outcome = "malformed"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	m.backendRequests.WithLabelValues(op, outcome).Inc()
	m.backendDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// InstrumentBackend wraps b so every call is counted and timed.
func InstrumentBackend(b triage.Backend, m *Metrics) triage.Backend {
	if m == nil {
		return b
	}
	return &instrumentedBackend{next: b, metrics: m}
}

type instrumentedBackend struct {
	next    triage.Backend
	metrics *Metrics
}

func (b *instrumentedBackend) Analyze(ctx context.Context, req triage.AnalyzeRequest) (triage.AnalyzeResponse, error) {
	start := time.Now()
	resp, err := b.next.Analyze(ctx, req)
	b.metrics.observeBackend(triage.OpAnalyze, start, err)
	return resp, err
}

func (b *instrumentedBackend) Roadmap(ctx context.Context, req triage.RoadmapRequest) (triage.RoadmapResponse, error) {
	start := time.Now()
	resp, err := b.next.Roadmap(ctx, req)
	b.metrics.observeBackend(triage.OpRoadmap, start, err)
	return resp, err
}
