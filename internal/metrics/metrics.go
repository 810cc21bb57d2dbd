// Package metrics provides Prometheus metrics for the schema
// registry's HTTP API, KV backends, and auth layer (spec §6.6
// observability, SPEC_FULL.md domain stack).
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the schema registry.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	NamesTotal         prometheus.Gauge
	SchemasTotal       prometheus.Gauge
	VersionsPerName    *prometheus.GaugeVec
	RegistrationsTotal *prometheus.CounterVec

	StorageOperations *prometheus.CounterVec
	StorageLatency    *prometheus.HistogramVec
	StorageErrors     *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheSize   *prometheus.GaugeVec

	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec
	AuthLatency  *prometheus.HistogramVec

	RateLimitHits *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_registry_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schema_registry_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.NamesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schema_registry_names_total",
			Help: "Total number of distinct schema names",
		},
	)

	m.SchemasTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schema_registry_schemas_total",
			Help: "Total number of registered schema objects (ids)",
		},
	)

	m.VersionsPerName = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schema_registry_versions_per_name",
			Help: "Number of distinct ids per schema name",
		},
		[]string{"name"},
	)

	m.RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_registrations_total",
			Help: "Total number of schema registration attempts",
		},
		[]string{"status"},
	)

	m.StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_storage_operations_total",
			Help: "Total number of KV backend operations",
		},
		[]string{"backend", "operation"},
	)

	m.StorageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_registry_storage_latency_seconds",
			Help:    "KV backend operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	m.StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_storage_errors_total",
			Help: "Total number of KV backend operation errors",
		},
		[]string{"backend", "operation"},
	)

	m.CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_cache_hits_total",
			Help: "Total number of schema cache hits",
		},
		[]string{"cache"},
	)

	m.CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_cache_misses_total",
			Help: "Total number of schema cache misses",
		},
		[]string{"cache"},
	)

	m.CacheSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schema_registry_cache_size",
			Help: "Current cache size",
		},
		[]string{"cache"},
	)

	m.AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"scheme"},
	)

	m.AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_auth_failures_total",
			Help: "Total number of authentication failures",
		},
		[]string{"scheme", "reason"},
	)

	m.AuthLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_registry_auth_latency_seconds",
			Help:    "Authentication latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scheme"},
	)

	m.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_registry_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"client"},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.NamesTotal,
		m.SchemasTotal,
		m.VersionsPerName,
		m.RegistrationsTotal,
		m.StorageOperations,
		m.StorageLatency,
		m.StorageErrors,
		m.CacheHits,
		m.CacheMisses,
		m.CacheSize,
		m.AuthAttempts,
		m.AuthFailures,
		m.AuthLatency,
		m.RateLimitHits,
	)

	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware returns HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.RequestsInFlight.Inc()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RequestsInFlight.Dec()
		duration := time.Since(start).Seconds()

		path := normalizePath(r.URL.Path)

		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes a URL path to reduce cardinality, matching
// the route shapes of spec §4.4's surface (and its /subjects alias).
func normalizePath(path string) string {
	switch {
	case (startsWith(path, "/names/") || startsWith(path, "/subjects/")) && endsWith(path, "/versions"):
		return "/names/{name}/versions"
	case startsWith(path, "/names/"):
		return "/names/{name}"
	case startsWith(path, "/subjects/"):
		return "/subjects/{name}"
	case startsWith(path, "/schemas/ids/"):
		return "/schemas/ids/{id}"
	case startsWith(path, "/digests/") && endsWith(path, "/versions"):
		return "/digests/{hex}/versions"
	}
	return path
}

func startsWith(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

func endsWith(s, suffix string) bool {
	return strings.HasSuffix(s, suffix)
}

// RecordSchemaRegistration records a schema registration attempt.
func (m *Metrics) RecordSchemaRegistration(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.RegistrationsTotal.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a KV backend operation.
func (m *Metrics) RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	m.StorageOperations.WithLabelValues(backend, operation).Inc()
	m.StorageLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		m.StorageErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordCacheAccess records a cache access.
func (m *Metrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordAuthAttempt records an authentication attempt.
func (m *Metrics) RecordAuthAttempt(scheme string, success bool, reason string, duration time.Duration) {
	m.AuthAttempts.WithLabelValues(scheme).Inc()
	m.AuthLatency.WithLabelValues(scheme).Observe(duration.Seconds())
	if !success {
		m.AuthFailures.WithLabelValues(scheme, reason).Inc()
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(client string) {
	m.RateLimitHits.WithLabelValues(client).Inc()
}

// UpdateNamesTotal updates the distinct-name count.
func (m *Metrics) UpdateNamesTotal(count float64) {
	m.NamesTotal.Set(count)
}

// UpdateSchemasTotal updates the registered-object count.
func (m *Metrics) UpdateSchemasTotal(count float64) {
	m.SchemasTotal.Set(count)
}

// UpdateVersionsPerName updates the version count for name.
func (m *Metrics) UpdateVersionsPerName(name string, count float64) {
	m.VersionsPerName.WithLabelValues(name).Set(count)
}

// UpdateCacheSize updates the cache size.
func (m *Metrics) UpdateCacheSize(cache string, size float64) {
	m.CacheSize.WithLabelValues(cache).Set(size)
}
