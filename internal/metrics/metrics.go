// Package metrics exposes Prometheus collectors for the answering pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mcqrouter"

var (
	// QuestionsRouted counts classified questions.
	// Labels: domain
	QuestionsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "questions_total",
			Help:      "Questions classified, by domain",
		},
		[]string{"domain"},
	)

	// BatchFlushes counts buffer flushes.
	// Labels: domain, reason (full, drain)
	BatchFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "flushes_total",
			Help:      "Domain buffer flushes, by domain and reason",
		},
		[]string{"domain", "reason"},
	)

	// BatchOutcomes counts batch model attempts.
	// Labels: domain, outcome (parsed, failed)
	BatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "batch_attempts_total",
			Help:      "Batch model attempts, by domain and outcome",
		},
		[]string{"domain", "outcome"},
	)

	// Fallbacks counts batches that degraded to per-item answering.
	// Labels: domain
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "fallbacks_total",
			Help:      "Batches answered item by item after failed batch attempts",
		},
		[]string{"domain"},
	)

	// DefaultAnswers counts substitutions of the default letter.
	// Labels: reason (no_match, not_letter, out_of_range, missing_key, call_error, missing_result)
	DefaultAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "default_substitutions_total",
			Help:      "Answers replaced by the default letter, by reason",
		},
		[]string{"reason"},
	)

	// LLMCallDuration tracks model call latency.
	// Labels: tier, result (success, error)
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Model call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tier", "result"},
	)

	// AnswerDuration tracks per-question latency in timing mode.
	AnswerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "Wall-clock time to answer one question in timing mode",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RetrievalCache counts passage cache lookups.
	// Labels: result (hit, miss)
	RetrievalCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "cache_lookups_total",
			Help:      "Passage cache lookups, by result",
		},
		[]string{"result"},
	)
)

// Default-answer reasons.
const (
	ReasonNoMatch       = "no_match"
	ReasonNotLetter     = "not_letter"
	ReasonOutOfRange    = "out_of_range"
	ReasonMissingKey    = "missing_key"
	ReasonCallError     = "call_error"
	ReasonMissingResult = "missing_result"
)

// Flush reasons.
const (
	FlushFull  = "full"
	FlushDrain = "drain"
)
