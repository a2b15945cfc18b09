package metrics

import "github.com/prometheus/client_golang/prometheus"

// Assistant Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "provider_requests_total",
			Help:      "Total number of AI provider requests",
		},
		[]string{"call", "status"}, // call: "embedding" / "reasoning"
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lostfound",
			Name:      "provider_request_duration_seconds",
			Help:      "AI provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"call"},
	)

	ProviderTransportFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "provider_transport_fallbacks_total",
			Help:      "Times the no-proxy transport fallback was used",
		},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"type"}, // "prompt" / "total"
	)

	AssistantQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "assistant_queries_total",
			Help:      "Assistant queries by outcome",
		},
		[]string{"outcome"}, // "ok" / "empty_catalogue" / "not_configured" / "error"
	)

	ItemEmbeddingsSyncedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lostfound",
			Name:      "item_embeddings_synced_total",
			Help:      "Item embeddings computed and persisted by the cache synchronizer",
		},
	)
)

var assistantMetricsRegistered bool

// RegisterAssistantMetrics registers assistant Prometheus metrics. Must be called once from main.
func RegisterAssistantMetrics() {
	if assistantMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderTransportFallbacksTotal)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(AssistantQueriesTotal)
	prometheus.MustRegister(ItemEmbeddingsSyncedTotal)
	assistantMetricsRegistered = true
}
