// Package router classifies questions into domains and resolves the domain's
// answering strategy.
package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
)

// Classifier assigns a domain to a question. It must always return one of
// question.Domains; confidence is in [0,1] and only used for diagnostics.
type Classifier interface {
	Classify(ctx context.Context, text string, choices []string) (question.Domain, float64)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string, choices []string) (question.Domain, float64)

func (f ClassifierFunc) Classify(ctx context.Context, text string, choices []string) (question.Domain, float64) {
	return f(ctx, text, choices)
}

// Route is the routing decision for one question.
type Route struct {
	Domain     question.Domain
	Confidence float64
	Strategy   strategy.Strategy
}

// Router wraps a Classifier and the strategy table.
type Router struct {
	classifier Classifier
	table      strategy.Table
	logger     *logging.Logger
}

// New creates a Router. A nil logger discards output.
func New(classifier Classifier, table strategy.Table, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{classifier: classifier, table: table, logger: logger}
}

// Route classifies q and attaches its strategy.
func (r *Router) Route(ctx context.Context, q question.Question) Route {
	domain, confidence := r.classifier.Classify(ctx, q.Question, q.Choices)
	s := r.StrategyFor(domain)

	metrics.QuestionsRouted.WithLabelValues(domain.String()).Inc()
	r.logger.Debug(ctx, "question routed",
		zap.String("qid", q.QID),
		zap.String("domain", domain.String()),
		zap.Float64("confidence", confidence),
		zap.Int("choices", len(q.Choices)),
	)
	return Route{Domain: domain, Confidence: confidence, Strategy: s}
}

// StrategyFor looks up the strategy for d and panics on an unknown domain.
func (r *Router) StrategyFor(d question.Domain) strategy.Strategy {
	return r.table.MustLookup(d)
}
