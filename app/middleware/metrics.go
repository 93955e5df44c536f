package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	requestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Business metrics, exported for use by the catalog client and the
	// bundle service.
	CatalogLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_service_catalog_lookups_total",
			Help: "Total catalog product lookups by outcome",
		},
		[]string{"outcome"},
	)

	CatalogCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_service_catalog_cache_total",
			Help: "Catalog snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	EnrichmentErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_service_enrichment_errors_total",
			Help: "Per-product enrichment failures by reason",
		},
		[]string{"reason"},
	)

	StorefrontQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_service_storefront_queries_total",
			Help: "Storefront bundle queries by status",
		},
		[]string{"status"},
	)

	PanicsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bundle_service_panics_recovered_total",
			Help: "Total number of recovered panics",
		},
	)
)

// Metrics returns a middleware that collects Prometheus metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		status := strconv.Itoa(wrapped.statusCode)

		// Use the Chi route pattern to avoid cardinality explosion from
		// dynamic path segments.
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		endpoint = strings.TrimRight(endpoint, "/")
		if endpoint == "" {
			endpoint = "/"
		}

		requestDuration.WithLabelValues(r.Method, endpoint, status).Observe(duration.Seconds())
		requestCount.WithLabelValues(r.Method, endpoint, status).Inc()
	})
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
