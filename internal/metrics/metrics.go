// Package metrics declares the Prometheus collectors shared by the store,
// the snapshotter and the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpsTotal counts backend operations by backend, operation and outcome.
	OpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvstore_ops_total",
			Help: "Total number of storage operations",
		},
		[]string{"backend", "op", "result"},
	)

	// OpDuration measures how long each backend operation takes.
	OpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvstore_op_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
		[]string{"backend", "op"},
	)

	// Entries tracks the entry count observed after each mutation.
	Entries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kvstore_entries",
			Help: "Number of entries held by a backend",
		},
		[]string{"backend"},
	)

	// SnapshotsTotal counts periodic flushes by outcome.
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvstore_snapshots_total",
			Help: "Total number of periodic snapshot attempts",
		},
		[]string{"result"},
	)

	// SnapshotDuration measures flush latency.
	SnapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kvstore_snapshot_duration_seconds",
			Help:    "Duration of snapshot flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal counts API requests by method, route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvstore_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
