package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedline_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FanoutEntriesTotal counts follower timeline entries by outcome.
	FanoutEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_fanout_entries_total",
		Help: "Follower timeline entries written by fanout, by result",
	}, []string{"result"})

	// FanoutFailuresTotal counts fanout runs reported as degraded, by stage.
	FanoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_fanout_failures_total",
		Help: "Fanout runs that did not reach every follower",
	}, []string{"stage"})

	// FanoutDuration records how long a fanout run takes.
	FanoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedline_fanout_duration_seconds",
		Help:    "Duration of follower fanout runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// FanoutFollowers records the follower count seen per fanout run.
	FanoutFollowers = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedline_fanout_followers",
		Help:    "Followers enumerated per fanout run",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// TimelineReadDuration records hydrated timeline read latency.
	TimelineReadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedline_timeline_read_duration_seconds",
		Help:    "Latency of hydrated timeline reads",
		Buckets: prometheus.DefBuckets,
	})

	// HydrationMisses counts timeline entries whose post no longer exists.
	HydrationMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedline_timeline_hydration_misses_total",
		Help: "Timeline entries dropped because the post was missing",
	})

	// PostCacheRequests counts post cache lookups by result.
	PostCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_post_cache_requests_total",
		Help: "Post cache lookups by result (hit, miss)",
	}, []string{"result"})

	// RedeliveryRuns counts redelivery job outcomes.
	RedeliveryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedline_fanout_redelivery_total",
		Help: "Redelivery attempts by result (resolved, retry, abandoned)",
	}, []string{"result"})
)

// DatabaseMetrics records query latency for a storage component.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
