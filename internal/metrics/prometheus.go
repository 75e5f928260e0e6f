package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_chat_turn_duration_seconds",
			Help:    "End-to-end moderation turn duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"path"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_turns_total",
			Help: "Total moderated turns processed",
		},
		[]string{"status"},
	)

	IntentConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_chat_intent_confidence",
			Help:    "Intent classification confidence per turn",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	BiasScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_chat_bias_score",
			Help:    "Bias score of drafted responses",
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 1.0},
		},
	)

	HallucinationRisk = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_chat_hallucination_risk",
			Help:    "Hallucination risk of drafted responses",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.6, 0.8, 1.0},
		},
	)

	ClarificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "support_chat_clarifications_total",
			Help: "Turns answered with a clarification instead of a response",
		},
	)

	HandoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_handoffs_total",
			Help: "Turns escalated to a human",
		},
		[]string{"reason"},
	)

	GroundedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_grounded_total",
			Help: "Retrieval grounding outcomes",
		},
		[]string{"outcome"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_audit_events_total",
			Help: "Audit events emitted per type",
		},
		[]string{"event_type"},
	)

	ActiveConversations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_chat_active_conversations",
			Help: "Conversations currently held in the context store",
		},
	)
)

func Init() {
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(IntentConfidence)
	prometheus.MustRegister(BiasScore)
	prometheus.MustRegister(HallucinationRisk)
	prometheus.MustRegister(ClarificationsTotal)
	prometheus.MustRegister(HandoffsTotal)
	prometheus.MustRegister(GroundedTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(AuditEventsTotal)
	prometheus.MustRegister(ActiveConversations)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
