package storage

import "github.com/prometheus/client_golang/prometheus"

func init() {
	// Register the metrics.
	prometheus.MustRegister(
		PromOperationDurationMilliseconds,
		PromDocumentsCount,
	)
}

var (
	// PromOperationDurationMilliseconds is a histogram used by stores to
	// record the execution time of each operation.
	PromOperationDurationMilliseconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bdecode_storage_operation_duration_milliseconds",
		Help:    "The time it takes a store to perform an operation",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"driver", "operation"})

	// PromDocumentsCount is a gauge used to hold the current number of
	// documents held by a store.
	PromDocumentsCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bdecode_storage_documents_count",
		Help: "The number of metainfo documents stored",
	}, []string{"driver"})
)
