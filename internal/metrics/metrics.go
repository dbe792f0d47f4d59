// Package metrics defines Prometheus metrics for navgraph.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navgraph_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navgraph_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navgraph_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "navgraph_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	PreloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navgraph_preload_duration_seconds",
			Help:    "Time to load parcels and build a graph snapshot",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	PreloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navgraph_preloads_total",
			Help: "Snapshot preloads by result",
		},
		[]string{"result"},
	)

	SnapshotEpoch = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "navgraph_snapshot_epoch",
			Help: "Epoch of the snapshot currently served",
		},
	)

	NodeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "navgraph_nodes_total",
			Help: "Parcels in the current snapshot",
		},
	)

	EdgeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "navgraph_edges_total",
			Help: "Unique bridge and canal connections in the current snapshot",
		},
	)

	SkippedRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "navgraph_snapshot_skipped_records",
			Help: "Records dropped while building the current snapshot, by reason",
		},
		[]string{"reason"},
	)

	PathQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navgraph_path_queries_total",
			Help: "Pathfinding queries by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	DiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navgraph_diagnostics_total",
			Help: "Connectivity analyses by mode and outcome",
		},
		[]string{"mode", "result"},
	)

	MatchPairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "navgraph_match_pairs_total",
			Help: "Bridge point pairs connected by the matcher",
		},
	)

	MatchSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "navgraph_match_save_failures_total",
			Help: "Parcel saves that failed during matching",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal, WSConnections,
		PreloadDuration, PreloadsTotal, SnapshotEpoch,
		NodeCount, EdgeCount, SkippedRecords,
		PathQueries, DiagnosticsTotal,
		MatchPairs, MatchSaveFailures,
	)
}
