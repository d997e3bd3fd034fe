// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pricing metrics
	QuoteCacheHits   prometheus.Counter
	QuoteCacheMisses prometheus.Counter
	ProviderRequests *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	UnpricedTokens   prometheus.Counter

	// FX metrics
	FXFallbacks prometheus.Counter

	// Run metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RecordsProcessed prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tax_engine"
	}

	return &Metrics{
		// Pricing metrics
		QuoteCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quote_cache_hits_total",
			Help:      "Total number of price lookups answered from the quote cache",
		}),
		QuoteCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quote_cache_misses_total",
			Help:      "Total number of cache-eligible price lookups that missed",
		}),
		ProviderRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "provider_requests_total",
			Help:      "Total number of price provider requests by provider",
		}, []string{"provider"}),
		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "provider_failures_total",
			Help:      "Total number of failed price provider requests by provider",
		}, []string{"provider"}),
		UnpricedTokens: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "unpriced_tokens_total",
			Help:      "Total number of lookups no waterfall tier could price",
		}),

		// FX metrics
		FXFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fx",
			Name:      "fallbacks_total",
			Help:      "Total number of runs that used the fallback FX rate",
		}),

		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of calculation runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Calculation run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		RecordsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "records_processed_total",
			Help:      "Total number of swap records classified",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCacheHit increments the quote cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.QuoteCacheHits.Inc()
}

// RecordCacheMiss increments the quote cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.QuoteCacheMisses.Inc()
}

// RecordProviderRequest records one provider attempt and its outcome.
func RecordProviderRequest(provider string, err error) {
	DefaultMetrics.ProviderRequests.WithLabelValues(provider).Inc()
	if err != nil {
		DefaultMetrics.ProviderFailures.WithLabelValues(provider).Inc()
	}
}

// RecordUnpricedToken increments the unpriced token counter.
func RecordUnpricedToken() {
	DefaultMetrics.UnpricedTokens.Inc()
}

// RecordFXFallback increments the FX fallback counter.
func RecordFXFallback() {
	DefaultMetrics.FXFallbacks.Inc()
}

// RecordRun records a completed calculation run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordRecordsProcessed adds to the processed record counter.
func RecordRecordsProcessed(n int) {
	DefaultMetrics.RecordsProcessed.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
