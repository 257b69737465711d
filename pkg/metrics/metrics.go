package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	CacheL1Hits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "universalis_cache_l1_hits_total",
			Help: "Total number of process-local cache hits by key family",
		},
		[]string{"family"},
	)

	CacheL2Hits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "universalis_cache_l2_hits_total",
			Help: "Total number of distributed cache hits by key family",
		},
		[]string{"family"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "universalis_cache_misses_total",
			Help: "Total number of cache misses (both tiers) by key family",
		},
		[]string{"family"},
	)

	CacheTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "universalis_cache_timeouts_total",
			Help: "Total number of distributed cache reads that hit the bounded wait",
		},
		[]string{"family"},
	)

	// Listing store metrics
	ListingStoreReplaceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "universalis_listing_replace_duration_seconds",
			Help:    "Time taken to replace the live listing set for one (world,item) group",
			Buckets: prometheus.DefBuckets,
		},
	)

	ListingStoreRetrieveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "universalis_listing_retrieve_duration_seconds",
			Help:    "Time taken to serve a retrieve_live call end to end",
			Buckets: prometheus.DefBuckets,
		},
	)

	ListingStoreDurableErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "universalis_listing_store_durable_errors_total",
			Help: "Total number of database errors surfaced by the listing store",
		},
	)

	// Sales store metrics
	SalesAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "universalis_sales_appended_total",
			Help: "Total number of sale rows appended (post-dedup)",
		},
	)

	// Upload pipeline metrics
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "universalis_uploads_total",
			Help: "Total number of uploads by outcome",
		},
		[]string{"outcome"}, // ok, or the apierr kind of the failing behavior's error (e.g. durable)
	)

	UploadBehaviorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "universalis_upload_behavior_duration_seconds",
			Help:    "Time taken to execute a single upload pipeline behavior",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"behavior"},
	)

	// Trusted source metrics
	TrustedSourcesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "universalis_trusted_sources_total",
			Help: "Total number of known trusted upload sources",
		},
	)

	BlacklistSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "universalis_blacklist_size",
			Help: "Total number of blacklisted uploader hashes",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "universalis_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "universalis_api_request_duration_seconds",
			Help:    "API request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheL1Hits,
		CacheL2Hits,
		CacheMisses,
		CacheTimeouts,
		ListingStoreReplaceDuration,
		ListingStoreRetrieveDuration,
		ListingStoreDurableErrors,
		SalesAppended,
		UploadsTotal,
		UploadBehaviorDuration,
		TrustedSourcesTotal,
		BlacklistSize,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
