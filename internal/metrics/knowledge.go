package metrics

import "github.com/prometheus/client_golang/prometheus"

// Knowledge-base metrics. Registered explicitly from main (no init()) so
// tests importing this package do not pollute the default registry twice.
var (
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "index_operations_total",
			Help:      "Document indexing operations by outcome",
		},
		[]string{"status"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "searches_total",
			Help:      "Knowledge base searches by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	EligibilityCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "eligibility_cache_total",
			Help:      "Eligibility cache lookups by result",
		},
		[]string{"result"},
	)

	EvalRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "evaluation_runs_total",
			Help:      "Completed evaluation runs",
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "embedding_requests_total",
			Help:      "Embedding API requests by status",
		},
		[]string{"model", "status"},
	)

	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "completion_requests_total",
			Help:      "Completion API requests by status",
		},
		[]string{"model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docdex",
			Name:      "completion_request_duration_seconds",
			Help:      "Completion API request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)
)

// RegisterKnowledgeMetrics registers the knowledge-base metrics with the
// default registry.
func RegisterKnowledgeMetrics() {
	prometheus.MustRegister(
		IndexOperationsTotal,
		SearchesTotal,
		EligibilityCacheTotal,
		EvalRunsTotal,
		EmbeddingRequestsTotal,
		CompletionRequestsTotal,
		CompletionRequestDuration,
	)
}
