// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RPC metrics
var (
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickerkt_rpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickerkt_rpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Media store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickerkt_store_queries_total",
			Help: "Total number of media store queries",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickerkt_store_query_duration_seconds",
			Help:    "Media store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	StoreRowsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickerkt_store_rows_returned",
			Help:    "Rows returned per media store query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		},
		[]string{"operation"},
	)
)

// Indexer metrics
var (
	IndexerFilesIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickerkt_indexer_files_indexed_total",
			Help: "Total number of files upserted into the media index",
		},
	)

	IndexerFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickerkt_indexer_files_removed_total",
			Help: "Total number of files removed from the media index",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickerkt_indexer_errors_total",
			Help: "Total number of indexer errors",
		},
	)

	IndexerLastScanDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickerkt_indexer_last_scan_duration_seconds",
			Help: "Duration of the last directory scan in seconds",
		},
	)

	IndexerWatching = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickerkt_indexer_watching",
			Help: "Whether the indexer is watching for changes (1 = watching, 0 = idle)",
		},
	)
)
