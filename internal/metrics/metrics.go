// Package metrics provides Prometheus metrics for podsync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsTotal counts processed feed items by outcome.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podsync",
			Name:      "items_total",
			Help:      "Total number of processed feed items",
		},
		[]string{"outcome"}, // success, failed, duplicate, updated
	)

	// CyclesTotal counts import and update cycles.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podsync",
			Name:      "cycles_total",
			Help:      "Total number of import and update cycles",
		},
		[]string{"mode", "status"},
	)

	// SnapshotLookups counts snapshot cache hits and misses.
	SnapshotLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podsync",
			Name:      "snapshot_lookups_total",
			Help:      "Feed snapshot cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// AssetFailures counts image sideload failures.
	AssetFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "podsync",
			Name:      "asset_failures_total",
			Help:      "Total number of image sideload failures",
		},
	)

	// FetchDuration measures feed fetch duration.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "podsync",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of feed fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// RecordItem records the outcome of one feed item.
func RecordItem(outcome string) {
	ItemsTotal.WithLabelValues(outcome).Inc()
}

// RecordCycle records a finished cycle.
func RecordCycle(mode string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CyclesTotal.WithLabelValues(mode, status).Inc()
}

// RecordSnapshot records a snapshot cache lookup.
func RecordSnapshot(hit bool) {
	if hit {
		SnapshotLookups.WithLabelValues("hit").Inc()
		return
	}
	SnapshotLookups.WithLabelValues("miss").Inc()
}
