package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

// Reason explains why an answer was replaced by the default.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoMatch    Reason = Reason(metrics.ReasonNoMatch)
	ReasonNotLetter  Reason = Reason(metrics.ReasonNotLetter)
	ReasonOutOfRange Reason = Reason(metrics.ReasonOutOfRange)
	ReasonMissingKey Reason = Reason(metrics.ReasonMissingKey)
)

// Validate returns answer when it is an uppercase letter no greater than max,
// and the default answer otherwise. Validating a valid answer returns it
// unchanged.
func Validate(answer string, max byte) (string, Reason) {
	if !question.IsLetter(answer) {
		return question.DefaultAnswer, ReasonNotLetter
	}
	if answer[0] > max {
		return question.DefaultAnswer, ReasonOutOfRange
	}
	return answer, ReasonNone
}

// Extractor runs the matcher cascade and validates the result.
type Extractor struct {
	matchers []Matcher
	logger   *logging.Logger
}

// New creates an Extractor with the default cascade.
func New(logger *logging.Logger) *Extractor {
	return NewWithMatchers(DefaultMatchers(), logger)
}

// NewWithMatchers creates an Extractor with a custom cascade.
func NewWithMatchers(matchers []Matcher, logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{matchers: matchers, logger: logger}
}

// Extract returns a letter in [A, q.MaxLetter()]. It never fails.
func (e *Extractor) Extract(ctx context.Context, raw string, q question.Question) string {
	answer, _ := e.ExtractWithReason(ctx, raw, q)
	return answer
}

// ExtractWithReason is Extract that also reports why the default letter was
// used. The reason is ReasonNone when the reply yielded a valid letter.
func (e *Extractor) ExtractWithReason(ctx context.Context, raw string, q question.Question) (string, Reason) {
	candidate, tier := question.DefaultAnswer, ""
	for _, m := range e.matchers {
		if letter, ok := m.Match(raw); ok {
			candidate, tier = letter, m.Name()
			break
		}
	}
	if tier == "" {
		metrics.DefaultAnswers.WithLabelValues(string(ReasonNoMatch)).Inc()
		e.logger.Debug(ctx, "no answer letter found in reply",
			zap.String("qid", q.QID),
			zap.String("raw", preview(raw)),
		)
		return question.DefaultAnswer, ReasonNoMatch
	}

	answer, reason := Validate(candidate, q.MaxLetter())
	if reason != ReasonNone {
		metrics.DefaultAnswers.WithLabelValues(string(reason)).Inc()
		e.logger.Warn(ctx, "invalid answer, defaulting",
			zap.String("qid", q.QID),
			zap.String("answer", candidate),
			zap.String("max", string(q.MaxLetter())),
			zap.String("reason", string(reason)),
		)
	}

	e.logger.Trace(ctx, "answer extracted",
		zap.String("qid", q.QID),
		zap.String("tier", tier),
		zap.String("raw", preview(raw)),
		zap.String("answer", answer),
	)
	return answer, reason
}

func preview(s string) string {
	const max = 30
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
