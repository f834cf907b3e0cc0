package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth pipeline metrics
	AuthRequestsTotal        *prometheus.CounterVec
	TenantResolutionFailures *prometheus.CounterVec
	GuardDenialsTotal        *prometheus.CounterVec
	TokensIssuedTotal        *prometheus.CounterVec
	PermissionLoadDuration   prometheus.Histogram

	// Session metrics
	SessionsActive     prometheus.Gauge
	SessionsSweptTotal prometheus.Counter

	// Cache metrics
	TenantCacheHitsTotal   *prometheus.CounterVec
	TenantCacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerline_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_auth_requests_total",
				Help: "Authentication pipeline outcomes",
			},
			[]string{"outcome"},
		),
		TenantResolutionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_tenant_resolution_failures_total",
				Help: "Tenant resolution failures by reason",
			},
			[]string{"reason"},
		),
		GuardDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_guard_denials_total",
				Help: "Authorization guard denials by guard kind",
			},
			[]string{"guard"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_tokens_issued_total",
				Help: "Signed tokens issued, by trigger",
			},
			[]string{"trigger"},
		),
		PermissionLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledgerline_permission_load_duration_seconds",
				Help:    "Duration of per-request permission loading",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledgerline_sessions_active",
				Help: "Live sessions at last sweep",
			},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledgerline_sessions_swept_total",
				Help: "Expired sessions removed by the sweeper",
			},
		),
		TenantCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_tenant_cache_hits_total",
				Help: "Tenant cache hits by layer",
			},
			[]string{"layer"},
		),
		TenantCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerline_tenant_cache_misses_total",
				Help: "Tenant cache misses by layer",
			},
			[]string{"layer"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledgerline_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledgerline_db_connections_idle",
				Help: "Idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthRequestsTotal,
		m.TenantResolutionFailures,
		m.GuardDenialsTotal,
		m.TokensIssuedTotal,
		m.PermissionLoadDuration,
		m.SessionsActive,
		m.SessionsSweptTotal,
		m.TenantCacheHitsTotal,
		m.TenantCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware records request counts and durations per route
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
