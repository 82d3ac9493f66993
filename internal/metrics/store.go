package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store Prometheus metrics, labelled by backend (bigquery, redis, memory).
var (
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"backend", "op", "status"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Vector store operation duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60},
		},
		[]string{"backend", "op"},
	)

	StoreRowsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_rows_written_total",
			Help:      "Rows written to vector tables",
		},
		[]string{"backend"},
	)

	SearchResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_returned",
			Help:      "Number of results returned per similarity search",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 500},
		},
		[]string{"backend"},
	)
)

var registerStore sync.Once

// RegisterStoreMetrics registers store metrics on the default registry.
// Safe to call more than once.
func RegisterStoreMetrics() {
	registerStore.Do(func() {
		prometheus.MustRegister(
			StoreOperationsTotal,
			StoreOperationDuration,
			StoreRowsWrittenTotal,
			SearchResultsReturned,
		)
	})
}

// ObserveStoreOp records one store operation started at start.
func ObserveStoreOp(backend, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperationsTotal.WithLabelValues(backend, op, status).Inc()
	StoreOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
