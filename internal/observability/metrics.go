package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation outcomes.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeRolledBack = "rolled_back"
	OutcomeSkipped    = "skipped"
)

var (
	// MutationsTotal counts optimistic mutations by kind and outcome.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recs_mutations_total",
		Help: "Total number of optimistic mutations by kind and outcome",
	}, []string{"kind", "outcome"})

	// RemoteCallLatency records remote API latency by operation.
	RemoteCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recs_remote_call_latency_seconds",
		Help:    "Remote API call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// RemoteErrors counts failed remote API calls by operation.
	RemoteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recs_remote_errors_total",
		Help: "Total number of failed remote API calls",
	}, []string{"operation"})

	// CacheErrorRate counts Redis errors by operation type.
	CacheErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recs_cache_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// OverlayRows counts assembled rows by which side won the overlay.
	OverlayRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recs_overlay_rows_total",
		Help: "Assembled rows by engagement source (cached or fetched)",
	}, []string{"source"})

	// SnapshotQueryLatency records snapshot database latency by operation and table.
	SnapshotQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recs_snapshot_query_latency_seconds",
		Help:    "Snapshot database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// RecordMutation increments MutationsTotal.
func RecordMutation(kind, outcome string) {
	MutationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordOverlay increments OverlayRows for one assembled row.
func RecordOverlay(keptCached bool) {
	source := "fetched"
	if keptCached {
		source = "cached"
	}
	OverlayRows.WithLabelValues(source).Inc()
}

// TrackRemoteCall returns a function that records latency and, on failure, an error.
func TrackRemoteCall(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		RemoteCallLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil {
			RemoteErrors.WithLabelValues(operation).Inc()
		}
	}
}

// TrackSnapshotQuery returns a function that records query latency when called (e.g. defer).
func TrackSnapshotQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		SnapshotQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
