package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion pipeline Prometheus metrics.
var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docfeed",
			Name:      "messages_total",
			Help:      "Queue messages by parsed kind and final outcome",
		},
		[]string{"kind", "outcome"}, // kind: content/file/rejected; outcome: acked/requeued
	)

	ChunksEmbeddedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docfeed",
			Name:      "chunks_embedded_total",
			Help:      "Chunks successfully embedded",
		},
	)

	ChunksSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docfeed",
			Name:      "chunks_skipped_total",
			Help:      "Chunks dropped because their embedding failed",
		},
		[]string{"reason"}, // provider/quota/rate_limited/invalid
	)

	PointsUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docfeed",
			Name:      "points_upserted_total",
			Help:      "Points written to the vector index",
		},
	)

	BatchFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docfeed",
			Name:      "batch_files_total",
			Help:      "Batch scan files by outcome",
		},
		[]string{"outcome"}, // processed/failed/empty
	)

	QueueConnectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docfeed",
			Name:      "queue_connect_attempts_total",
			Help:      "Queue connection attempts by result",
		},
		[]string{"status"}, // success/failure
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(ChunksEmbeddedTotal)
	prometheus.MustRegister(ChunksSkippedTotal)
	prometheus.MustRegister(PointsUpsertedTotal)
	prometheus.MustRegister(BatchFilesTotal)
	prometheus.MustRegister(QueueConnectAttemptsTotal)
	pipelineMetricsRegistered = true
}
