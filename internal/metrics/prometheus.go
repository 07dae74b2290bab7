package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srm_faq_chat_total",
			Help: "Total chat invocations by outcome",
		},
		[]string{"outcome"},
	)

	ChatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srm_faq_chat_duration_seconds",
			Help:    "End-to-end chat pipeline duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	SimilarityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srm_faq_top_similarity_score",
			Help:    "Top match similarity for matched chats",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	HumanizeFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "srm_faq_humanize_fallback_total",
			Help: "Chats answered with the deterministic fallback after a humanizer failure",
		},
	)

	LogFailureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "srm_faq_log_failure_total",
			Help: "Conversation log writes that failed",
		},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srm_faq_search_total",
			Help: "Total search invocations by status",
		},
		[]string{"status"},
	)

	EmbeddingCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srm_faq_embedding_cache_ops_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	KnowledgeEntriesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "srm_faq_knowledge_entries_active",
			Help: "Active entries in the knowledge base",
		},
	)
)

func Init() {
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(SimilarityScore)
	prometheus.MustRegister(HumanizeFallbackTotal)
	prometheus.MustRegister(LogFailureTotal)
	prometheus.MustRegister(SearchTotal)
	prometheus.MustRegister(EmbeddingCacheOps)
	prometheus.MustRegister(KnowledgeEntriesActive)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
