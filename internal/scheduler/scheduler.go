// Package scheduler groups routed questions into per-domain buffers and
// flushes each buffer as a batch as soon as it fills, draining whatever is
// left once the input ends.
package scheduler

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/router"
)

const instrumentationName = "github.com/fyrsmithlabs/mcqrouter/internal/scheduler"

// Router classifies one question.
type Router interface {
	Route(ctx context.Context, q question.Question) router.Route
}

// BatchAnswerer answers a same-domain batch. It must return an entry for every
// question it is given.
type BatchAnswerer interface {
	AnswerBatch(ctx context.Context, d question.Domain, qs []question.Question) map[string]string
}

// FlushFunc observes the answers produced by one flush.
type FlushFunc func(ctx context.Context, d question.Domain, answers map[string]string)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFlushHook registers fn to run after every flush.
func WithFlushHook(fn FlushFunc) Option {
	return func(s *Scheduler) {
		s.hooks = append(s.hooks, fn)
	}
}

// Scheduler owns one buffer per domain and the merged result map. It is not
// safe for concurrent use; one goroutine feeds it questions in input order.
type Scheduler struct {
	router    Router
	answerer  BatchAnswerer
	batchSize int
	logger    *logging.Logger
	tracer    trace.Tracer
	hooks     []FlushFunc

	buffers map[question.Domain][]question.Question
	results map[string]string
	routed  map[question.Domain]int
	drained bool
}

// New creates a Scheduler that flushes a domain buffer once it holds
// batchSize questions.
func New(r Router, answerer BatchAnswerer, batchSize int, opts ...Option) (*Scheduler, error) {
	if r == nil || answerer == nil {
		return nil, fmt.Errorf("scheduler: router and answerer are required")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("scheduler: batch size must be >= 1, got %d", batchSize)
	}
	s := &Scheduler{
		router:    r,
		answerer:  answerer,
		batchSize: batchSize,
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(instrumentationName),
		buffers:   make(map[question.Domain][]question.Question, len(question.Domains)),
		results:   make(map[string]string),
		routed:    make(map[question.Domain]int, len(question.Domains)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Add routes q into its domain buffer. When the buffer reaches the batch
// size it is flushed before Add returns.
func (s *Scheduler) Add(ctx context.Context, q question.Question) {
	if s.drained {
		panic("scheduler: Add after Drain")
	}
	route := s.router.Route(ctx, q)
	d := route.Domain
	s.routed[d]++
	s.buffers[d] = append(s.buffers[d], q)
	if len(s.buffers[d]) >= s.batchSize {
		s.flush(ctx, d, metrics.FlushFull)
	}
}

// Drain flushes every non-empty buffer once, in question.Domains order. It
// is the terminal transition; Add must not be called afterwards.
func (s *Scheduler) Drain(ctx context.Context) {
	for _, d := range question.Domains {
		if len(s.buffers[d]) > 0 {
			s.flush(ctx, d, metrics.FlushDrain)
		}
	}
	s.drained = true
}

// Run feeds qs in order and drains. It stops early with ctx.Err() when ctx is
// cancelled between questions; answers flushed so far stay in Results.
func (s *Scheduler) Run(ctx context.Context, qs []question.Question) error {
	for _, q := range qs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Add(ctx, q)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Drain(ctx)
	return nil
}

// Pending returns the number of questions buffered for d.
func (s *Scheduler) Pending(d question.Domain) int {
	return len(s.buffers[d])
}

// Results returns the merged qid to answer map. The map is owned by the
// Scheduler and must not be modified.
func (s *Scheduler) Results() map[string]string {
	return s.results
}

// Routed returns how many questions were routed to each domain.
func (s *Scheduler) Routed() map[question.Domain]int {
	out := make(map[question.Domain]int, len(s.routed))
	for d, n := range s.routed {
		out[d] = n
	}
	return out
}

func (s *Scheduler) flush(ctx context.Context, d question.Domain, reason string) {
	batch := s.buffers[d]
	s.buffers[d] = nil

	ctx, span := s.tracer.Start(ctx, "scheduler.Flush", trace.WithAttributes(
		attribute.String("question.domain", d.String()),
		attribute.String("flush.reason", reason),
		attribute.Int("batch.size", len(batch)),
	))
	defer span.End()

	metrics.BatchFlushes.WithLabelValues(d.String(), reason).Inc()
	s.logger.Debug(ctx, "flushing domain buffer",
		zap.String("domain", d.String()),
		zap.String("reason", reason),
		zap.Int("size", len(batch)),
	)

	answers := s.answerer.AnswerBatch(ctx, d, batch)
	for _, q := range batch {
		a, ok := answers[q.QID]
		if !ok {
			// Kept out of the map so the output stage reports it.
			s.logger.Warn(ctx, "batch returned no answer for question", zap.String("qid", q.QID))
			continue
		}
		if _, dup := s.results[q.QID]; dup {
			s.logger.Warn(ctx, "question answered twice, keeping first answer", zap.String("qid", q.QID))
			continue
		}
		s.results[q.QID] = a
	}

	for _, hook := range s.hooks {
		hook(ctx, d, answers)
	}
}
