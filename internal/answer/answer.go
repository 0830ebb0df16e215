// Package answer turns questions into validated answer letters by calling the
// model, either one question at a time or as a same-domain batch with retry
// and per-item fallback.
package answer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/extract"
	"github.com/fyrsmithlabs/mcqrouter/internal/llm"
	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/passage"
	"github.com/fyrsmithlabs/mcqrouter/internal/prompt"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
)

const instrumentationName = "github.com/fyrsmithlabs/mcqrouter/internal/answer"

// Config controls the batch path.
type Config struct {
	// MaxAttempts is the number of batch calls made before falling back.
	MaxAttempts int

	// FallbackToIndividual answers each item on its own after the batch
	// attempts fail. When false those items get the default answer.
	FallbackToIndividual bool
}

// DefaultConfig returns two attempts with fallback enabled.
func DefaultConfig() Config {
	return Config{MaxAttempts: 2, FallbackToIndividual: true}
}

// Result is the outcome of the single-question path.
type Result struct {
	Answer string
	Reason extract.Reason
	Raw    string
	Source passage.Source
}

// Answerer runs the single and batch answering paths. It is safe for
// concurrent use when its collaborators are.
type Answerer struct {
	client    llm.Client
	assembler *passage.Assembler
	extractor *extract.Extractor
	table     strategy.Table
	cfg       Config
	logger    *logging.Logger
	tracer    trace.Tracer
	stats     Stats
}

// New creates an Answerer. A nil logger discards output.
func New(client llm.Client, assembler *passage.Assembler, extractor *extract.Extractor, table strategy.Table, cfg Config, logger *logging.Logger) (*Answerer, error) {
	if client == nil {
		return nil, fmt.Errorf("answer: model client is required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("answer: max attempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if assembler == nil {
		assembler = passage.NewAssembler(nil, logger)
	}
	if extractor == nil {
		extractor = extract.New(logger)
	}
	return &Answerer{
		client:    client,
		assembler: assembler,
		extractor: extractor,
		table:     table,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
	}, nil
}

// Stats returns the counters accumulated by this Answerer.
func (a *Answerer) Stats() map[question.Domain]DomainStats {
	return a.stats.Snapshot()
}

// AnswerOne answers q on its own. It never fails; every error becomes the
// default answer.
func (a *Answerer) AnswerOne(ctx context.Context, q question.Question, d question.Domain) string {
	r, _ := a.Single(ctx, q, d)
	return r.Answer
}

// Single makes exactly one model call for q. The returned Result always holds
// a valid letter; err reports a failed call, in which case the letter is the
// default.
func (a *Answerer) Single(ctx context.Context, q question.Question, d question.Domain) (Result, error) {
	ctx, span := a.tracer.Start(ctx, "answer.AnswerOne", trace.WithAttributes(
		attribute.String("question.id", q.QID),
		attribute.String("question.domain", d.String()),
	))
	defer span.End()
	ctx = logging.WithQuestion(ctx, q.QID, d.String())

	s := a.table.MustLookup(d)
	assembled := a.assembler.Assemble(ctx, q, s)
	a.stats.update(d, func(ds *DomainStats) { ds.SingleCalls++ })

	messages, err := prompt.Single(d, prompt.Item{
		Question: assembled.Question,
		Choices:  q.Choices,
		Context:  assembled.Context,
	})
	if err != nil {
		// Templates are static; a render failure is treated like a failed call.
		return a.failSingle(ctx, span, d, assembled.Source, err)
	}

	raw, err := a.client.Call(ctx, messages, s.Tier, s.Temperature)
	if err != nil {
		return a.failSingle(ctx, span, d, assembled.Source, err)
	}

	answer, reason := a.extractor.ExtractWithReason(ctx, raw, q)
	if reason != extract.ReasonNone {
		a.stats.update(d, func(ds *DomainStats) { ds.Defaults++ })
	}
	span.SetAttributes(attribute.String("answer", answer))
	return Result{Answer: answer, Reason: reason, Raw: raw, Source: assembled.Source}, nil
}

func (a *Answerer) failSingle(ctx context.Context, span trace.Span, d question.Domain, src passage.Source, err error) (Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.DefaultAnswers.WithLabelValues(metrics.ReasonCallError).Inc()
	a.stats.update(d, func(ds *DomainStats) {
		ds.CallErrors++
		ds.Defaults++
	})
	a.logger.Error(ctx, "model call failed, defaulting", zap.Error(err))
	return Result{
		Answer: question.DefaultAnswer,
		Reason: extract.Reason(metrics.ReasonCallError),
		Source: src,
	}, err
}
