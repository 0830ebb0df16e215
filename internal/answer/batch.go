package answer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/extract"
	"github.com/fyrsmithlabs/mcqrouter/internal/llm"
	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/prompt"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
)

// AnswerBatch answers same-domain questions with one model call, retried up
// to MaxAttempts times. If no attempt yields a JSON object, each question is
// answered on its own. The returned map holds exactly one valid letter per
// input qid.
func (a *Answerer) AnswerBatch(ctx context.Context, d question.Domain, qs []question.Question) map[string]string {
	results := make(map[string]string, len(qs))
	if len(qs) == 0 {
		return results
	}

	ctx, span := a.tracer.Start(ctx, "answer.AnswerBatch", trace.WithAttributes(
		attribute.String("question.domain", d.String()),
		attribute.Int("batch.size", len(qs)),
	))
	defer span.End()
	ctx = logging.WithQuestion(ctx, "", d.String())

	s := a.table.MustLookup(d)
	a.stats.update(d, func(ds *DomainStats) { ds.Batches++ })

	parsed, ok := a.callBatch(ctx, span, d, s, qs)
	if ok {
		a.stats.update(d, func(ds *DomainStats) { ds.ParsedBatches++ })
		for i, q := range qs {
			answer, reason := parsed.AnswerAt(i+1, q.MaxLetter())
			if reason != extract.ReasonNone {
				metrics.DefaultAnswers.WithLabelValues(string(reason)).Inc()
				a.stats.update(d, func(ds *DomainStats) { ds.Defaults++ })
				a.logger.Warn(ctx, "invalid batch answer, defaulting",
					zap.String("qid", q.QID),
					zap.Int("index", i+1),
					zap.String("reason", string(reason)),
				)
			}
			results[q.QID] = answer
		}
		return results
	}

	metrics.Fallbacks.WithLabelValues(d.String()).Inc()
	a.stats.update(d, func(ds *DomainStats) { ds.Fallbacks++ })
	span.SetAttributes(attribute.Bool("batch.fallback", true))

	if !a.cfg.FallbackToIndividual {
		a.logger.Warn(ctx, "batch failed and fallback is disabled, defaulting all items",
			zap.Int("size", len(qs)),
		)
		for _, q := range qs {
			metrics.DefaultAnswers.WithLabelValues(metrics.ReasonCallError).Inc()
			results[q.QID] = question.DefaultAnswer
		}
		a.stats.update(d, func(ds *DomainStats) { ds.Defaults += len(qs) })
		return results
	}

	a.logger.Warn(ctx, "batch failed, answering items individually", zap.Int("size", len(qs)))
	for _, q := range qs {
		results[q.QID] = a.AnswerOne(ctx, q, d)
	}
	return results
}

// callBatch assembles contexts once and runs the attempt loop. ok is false
// when no attempt produced a usable object.
func (a *Answerer) callBatch(ctx context.Context, span trace.Span, d question.Domain, s strategy.Strategy, qs []question.Question) (extract.Parsed, bool) {
	items := make([]prompt.Item, len(qs))
	for i, q := range qs {
		assembled := a.assembler.Assemble(ctx, q, s)
		items[i] = prompt.Item{
			Question: assembled.Question,
			Choices:  q.Choices,
			Context:  assembled.Context,
		}
	}

	messages, err := prompt.Batch(d, items)
	if err != nil {
		span.RecordError(err)
		a.logger.Error(ctx, "failed to build batch prompt", zap.Error(err))
		return extract.Parsed{}, false
	}

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		outcome := a.attempt(ctx, messages, s)
		switch o := outcome.(type) {
		case extract.Parsed:
			metrics.BatchOutcomes.WithLabelValues(d.String(), "parsed").Inc()
			span.SetAttributes(
				attribute.Int("batch.attempts", attempt),
				attribute.Bool("batch.repaired", o.Repaired),
			)
			if o.Repaired {
				a.logger.Debug(ctx, "batch reply repaired", zap.Int("attempt", attempt))
			}
			return o, true
		case extract.Failed:
			metrics.BatchOutcomes.WithLabelValues(d.String(), "failed").Inc()
			a.logger.Warn(ctx, "batch attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", a.cfg.MaxAttempts),
				zap.Error(o),
			)
		}
	}

	span.SetStatus(codes.Error, "batch attempts exhausted")
	return extract.Parsed{}, false
}

func (a *Answerer) attempt(ctx context.Context, messages []llm.Message, s strategy.Strategy) extract.BatchOutcome {
	raw, err := a.client.Call(ctx, messages, s.Tier, s.Temperature)
	if err != nil {
		return extract.Failed{Reason: err}
	}
	return extract.ParseBatch(raw)
}
