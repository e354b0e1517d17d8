package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream fetch metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_upstream_requests_total",
			Help: "Total number of upstream sub-fetches",
		},
		[]string{"source", "status"}, // gamma.events/gamma.markets/kalshi.markets, success/error
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketfeed_upstream_duration_seconds",
			Help:    "Duration of upstream sub-fetches",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// Classification metrics
	StageRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_stage_rejections_total",
			Help: "Markets rejected per classification stage",
		},
		[]string{"stage"},
	)

	// Response metrics
	Responses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_responses_total",
			Help: "Market listings served by source",
		},
		[]string{"source"}, // live/database/cache/error
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_cache_lookups_total",
			Help: "Response cache lookups",
		},
		[]string{"result"}, // hit/miss/skip
	)

	// Sync metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"status"}, // success/error/skipped
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketfeed_sync_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncedMarkets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketfeed_synced_markets",
			Help: "Markets stored by the last successful sync",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketfeed_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketfeed_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)
)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpstream records one upstream sub-fetch.
func RecordUpstream(source string, duration time.Duration, err error) {
	UpstreamRequests.WithLabelValues(source, status(err)).Inc()
	UpstreamDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRejection counts a market dropped by a classification stage.
func RecordRejection(stage string) {
	StageRejections.WithLabelValues(stage).Inc()
}

// RecordResponse counts a served listing.
func RecordResponse(source string) {
	Responses.WithLabelValues(source).Inc()
}

// RecordCacheLookup records a response-cache hit, miss or skip.
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordSync records a finished sync run.
func RecordSync(duration time.Duration, stored int, err error) {
	SyncRuns.WithLabelValues(status(err)).Inc()
	SyncDuration.Observe(duration.Seconds())
	if err == nil {
		SyncedMarkets.Set(float64(stored))
	}
}

// RecordSyncSkipped counts a run that found the sync lock held.
func RecordSyncSkipped() {
	SyncRuns.WithLabelValues("skipped").Inc()
}

// RecordDatabaseQuery records database query metrics.
func RecordDatabaseQuery(operation string, err error) {
	DatabaseQueries.WithLabelValues(operation, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
