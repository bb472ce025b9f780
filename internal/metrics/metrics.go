package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacedecay_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spacedecay_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacedecay_cache_lookups_total",
			Help: "Cache lookups by key and result (hit, miss, error).",
		},
		[]string{"key", "result"},
	)

	cacheWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacedecay_cache_write_errors_total",
			Help: "Failed cache writes by key.",
		},
		[]string{"key"},
	)

	sourceFetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spacedecay_source_fetch_duration_seconds",
			Help:    "Source fetch duration in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	sourceFetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacedecay_source_fetch_failures_total",
			Help: "Failed source fetches.",
		},
		[]string{"source"},
	)

	sourceRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spacedecay_source_records",
			Help: "Raw records in the last loaded dataset per source.",
		},
		[]string{"source"},
	)

	datasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacedecay_dataset_loads_total",
			Help: "Dataset loads by outcome (fresh, degraded, failed).",
		},
		[]string{"outcome"},
	)

	canonicalObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spacedecay_canonical_objects",
			Help: "Objects in the current canonical dataset.",
		},
	)

	degradedMode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spacedecay_degraded_mode",
			Help: "1 when the served dataset comes from the cached canonical result.",
		},
	)

	datasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spacedecay_dataset_age_seconds",
			Help: "Age of the served canonical dataset in seconds.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		cacheLookupsTotal,
		cacheWriteErrorsTotal,
		sourceFetchDurationSeconds,
		sourceFetchFailuresTotal,
		sourceRecords,
		datasetLoadsTotal,
		canonicalObjects,
		degradedMode,
		datasetAgeSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCacheLookup counts a cache read. result is "hit", "miss" or "error".
func IncCacheLookup(key, result string) {
	cacheLookupsTotal.WithLabelValues(key, result).Inc()
}

func IncCacheWriteErrors(key string) {
	cacheWriteErrorsTotal.WithLabelValues(key).Inc()
}

// ObserveSourceFetch records one fetch attempt for source.
func ObserveSourceFetch(source string, d time.Duration, err error) {
	sourceFetchDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		sourceFetchFailuresTotal.WithLabelValues(source).Inc()
	}
}

func SetSourceRecords(source string, n int) {
	sourceRecords.WithLabelValues(source).Set(float64(n))
}

func IncDatasetLoads(outcome string) {
	datasetLoadsTotal.WithLabelValues(outcome).Inc()
}

func SetCanonicalObjects(n int) {
	canonicalObjects.Set(float64(n))
}

func SetDegraded(degraded bool) {
	if degraded {
		degradedMode.Set(1)
		return
	}
	degradedMode.Set(0)
}

func SetDatasetAge(seconds float64) {
	datasetAgeSeconds.Set(seconds)
}

// knownRoutes are exported with their own path label.
var knownRoutes = map[string]bool{
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/objects":          true,
	"/api/v1/objects/metadata": true,
	"/api/v1/catalog/refresh":  true,
}

// normalizeRoute maps a request path to a bounded label value so that
// arbitrary client paths cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
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

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
