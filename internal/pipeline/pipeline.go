// Package pipeline runs a question set end to end: routing, batching,
// answering, result completion and the per-run side outputs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/answer"
	"github.com/fyrsmithlabs/mcqrouter/internal/journal"
	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/output"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/router"
	"github.com/fyrsmithlabs/mcqrouter/internal/scheduler"
)

// Run modes recorded in the journal.
const (
	ModeSolve   = "solve"
	ModePredict = "predict"
)

// Journal persists answers across runs.
type Journal interface {
	StartRun(ctx context.Context, runID, mode, input string) error
	Record(ctx context.Context, runID string, entries []journal.Entry) error
	Answers(ctx context.Context) (map[string]journal.Entry, error)
}

// Config holds run-wide settings.
type Config struct {
	BatchSize int
	// Input names the question file in the journal.
	Input string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithJournal enables resumable runs.
func WithJournal(j Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithSink publishes an event per answered question.
func WithSink(s output.Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline wires a router and an answerer into complete runs.
type Pipeline struct {
	router   scheduler.Router
	answerer *answer.Answerer
	cfg      Config
	journal  Journal
	sink     output.Sink
	logger   *logging.Logger
}

// New creates a Pipeline.
func New(r scheduler.Router, a *answer.Answerer, cfg Config, opts ...Option) (*Pipeline, error) {
	if r == nil || a == nil {
		return nil, fmt.Errorf("pipeline: router and answerer are required")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("pipeline: batch size must be >= 1, got %d", cfg.BatchSize)
	}
	p := &Pipeline{
		router:   r,
		answerer: a,
		cfg:      cfg,
		sink:     output.NopSink{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DomainReport summarises one domain for a run.
type DomainReport struct {
	Questions int
	Reused    int
	answer.DomainStats
}

// Report is the outcome of a run. Rows follow input order and hold exactly
// one valid letter per question.
type Report struct {
	RunID   string
	Rows    []output.Row
	Domains map[question.Domain]DomainReport
	Missing int
	Reused  int
}

// TimingSummary aggregates per-question latency in timing mode.
type TimingSummary struct {
	Count   int
	Total   time.Duration
	Average time.Duration
}

// Solve answers qs through the batch scheduler. Questions already in the
// journal are not asked again. A cancelled ctx stops the run between
// questions; the returned report then covers what was answered and err is
// ctx.Err().
func (p *Pipeline) Solve(ctx context.Context, qs []question.Question) (Report, error) {
	ctx, runID := p.runContext(ctx)
	rep := Report{RunID: runID, Domains: make(map[question.Domain]DomainReport)}

	reused, err := p.startRun(ctx, runID, ModeSolve)
	if err != nil {
		return rep, err
	}

	pending := make([]question.Question, 0, len(qs))
	for _, q := range qs {
		if e, ok := reused[q.QID]; ok {
			if d, err := question.ParseDomain(e.Domain); err == nil {
				dr := rep.Domains[d]
				dr.Reused++
				rep.Domains[d] = dr
			}
			rep.Reused++
			continue
		}
		pending = append(pending, q)
	}
	if rep.Reused > 0 {
		p.logger.Info(ctx, "reusing journaled answers",
			zap.Int("reused", rep.Reused),
			zap.Int("pending", len(pending)),
		)
	}

	sched, err := scheduler.New(p.router, p.answerer, p.cfg.BatchSize,
		scheduler.WithLogger(p.logger),
		scheduler.WithFlushHook(p.onFlush(runID)),
	)
	if err != nil {
		return rep, err
	}
	runErr := sched.Run(ctx, pending)

	results := sched.Results()
	rep.Rows = make([]output.Row, len(qs))
	for i, q := range qs {
		a, ok := results[q.QID]
		if !ok {
			if e, hit := reused[q.QID]; hit {
				a, ok = e.Answer, true
			}
		}
		if !ok || !question.InRange(a, q.MaxLetter()) {
			if runErr == nil {
				metrics.DefaultAnswers.WithLabelValues(metrics.ReasonMissingResult).Inc()
				p.logger.Warn(ctx, "no result for question, writing default", zap.String("qid", q.QID))
			}
			a = question.DefaultAnswer
			rep.Missing++
		}
		rep.Rows[i] = output.Row{QID: q.QID, Answer: a}
	}

	for d, n := range sched.Routed() {
		dr := rep.Domains[d]
		dr.Questions = n
		rep.Domains[d] = dr
	}
	p.mergeStats(rep.Domains)
	p.logDomainStats(ctx, rep)

	if runErr != nil {
		return rep, runErr
	}
	return rep, nil
}

// Predict answers each question on its own and times it. A failed model
// call still yields the default letter with its measured time. Only a
// failure outside the call (a panic, or ctx ending mid-question) records
// time zero and stays out of the totals.
func (p *Pipeline) Predict(ctx context.Context, qs []question.Question) (Report, TimingSummary, error) {
	ctx, runID := p.runContext(ctx)
	rep := Report{RunID: runID, Domains: make(map[question.Domain]DomainReport)}
	var sum TimingSummary

	if _, err := p.startRun(ctx, runID, ModePredict); err != nil {
		return rep, sum, err
	}

	rep.Rows = make([]output.Row, 0, len(qs))
	for i, q := range qs {
		if err := ctx.Err(); err != nil {
			return rep, sum, err
		}

		route, row, elapsed, timed := p.timeOne(ctx, q)
		if timed {
			metrics.AnswerDuration.Observe(elapsed.Seconds())
			sum.Total += elapsed
		}
		sum.Count++
		rep.Rows = append(rep.Rows, row)

		dr := rep.Domains[route.Domain]
		dr.Questions++
		rep.Domains[route.Domain] = dr

		p.logger.Info(ctx, "question answered",
			zap.Int("index", i+1),
			zap.Int("total", len(qs)),
			zap.String("qid", q.QID),
			zap.String("answer", row.Answer),
			zap.String("time", output.FormatSeconds(row.Seconds)),
		)
		p.emit(ctx, runID, route.Domain, []output.Row{row})
	}

	if sum.Count > 0 {
		sum.Average = sum.Total / time.Duration(sum.Count)
	}
	p.mergeStats(rep.Domains)
	p.logDomainStats(ctx, rep)
	p.logger.Info(ctx, "timing summary",
		zap.Int("questions", sum.Count),
		zap.Duration("total", sum.Total),
		zap.Duration("average", sum.Average),
	)
	return rep, sum, nil
}

// timeOne routes and answers q, timing the whole step. timed is false when
// the step failed outside the model call; row then holds the default letter
// with time zero.
func (p *Pipeline) timeOne(ctx context.Context, q question.Question) (route router.Route, row output.Row, elapsed time.Duration, timed bool) {
	row = output.Row{QID: q.QID, Answer: question.DefaultAnswer}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "answering panicked, writing default",
				zap.String("qid", q.QID),
				zap.Any("panic", r),
			)
			row, elapsed, timed = output.Row{QID: q.QID, Answer: question.DefaultAnswer}, 0, false
		}
	}()

	start := time.Now()
	route = p.router.Route(ctx, q)
	res, err := p.answerer.Single(ctx, q, route.Domain)
	elapsed = time.Since(start)

	if ctx.Err() != nil {
		return route, row, 0, false
	}
	if err != nil {
		// Single already logged the call error and returned the default.
		p.logger.Debug(ctx, "model call failed, timing kept", zap.String("qid", q.QID), zap.Error(err))
	}
	row.Answer = res.Answer
	if !question.InRange(row.Answer, q.MaxLetter()) {
		row.Answer = question.DefaultAnswer
	}
	row.Seconds = elapsed.Seconds()
	return route, row, elapsed, true
}

func (p *Pipeline) runContext(ctx context.Context) (context.Context, string) {
	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	return ctx, runID
}

// startRun registers the run and returns previously journaled answers.
func (p *Pipeline) startRun(ctx context.Context, runID, mode string) (map[string]journal.Entry, error) {
	if p.journal == nil {
		return nil, nil
	}
	if err := p.journal.StartRun(ctx, runID, mode, p.cfg.Input); err != nil {
		return nil, fmt.Errorf("failed to start journal run: %w", err)
	}
	if mode != ModeSolve {
		return nil, nil
	}
	prev, err := p.journal.Answers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return prev, nil
}

func (p *Pipeline) onFlush(runID string) scheduler.FlushFunc {
	return func(ctx context.Context, d question.Domain, answers map[string]string) {
		rows := make([]output.Row, 0, len(answers))
		for qid, a := range answers {
			rows = append(rows, output.Row{QID: qid, Answer: a})
		}
		p.emit(ctx, runID, d, rows)
	}
}

// emit journals and publishes rows. Failures are logged only.
func (p *Pipeline) emit(ctx context.Context, runID string, d question.Domain, rows []output.Row) {
	if p.journal != nil {
		entries := make([]journal.Entry, len(rows))
		for i, r := range rows {
			entries[i] = journal.Entry{QID: r.QID, Answer: r.Answer, Domain: d.String()}
		}
		if err := p.journal.Record(ctx, runID, entries); err != nil {
			p.logger.Warn(ctx, "failed to journal answers", zap.String("domain", d.String()), zap.Error(err))
		}
	}
	for _, r := range rows {
		err := p.sink.Publish(ctx, output.Event{
			RunID:   runID,
			QID:     r.QID,
			Domain:  d.String(),
			Answer:  r.Answer,
			Seconds: r.Seconds,
		})
		if err != nil {
			p.logger.Warn(ctx, "failed to publish answer event", zap.String("qid", r.QID), zap.Error(err))
		}
	}
}

func (p *Pipeline) mergeStats(domains map[question.Domain]DomainReport) {
	for d, s := range p.answerer.Stats() {
		dr := domains[d]
		dr.DomainStats = s
		domains[d] = dr
	}
}

func (p *Pipeline) logDomainStats(ctx context.Context, rep Report) {
	for _, d := range question.Domains {
		dr, ok := rep.Domains[d]
		if !ok {
			continue
		}
		p.logger.Info(ctx, "domain stats",
			zap.String("domain", d.String()),
			zap.Int("questions", dr.Questions),
			zap.Int("reused", dr.Reused),
			zap.Int("batches", dr.Batches),
			zap.Int("parsed_batches", dr.ParsedBatches),
			zap.Int("fallbacks", dr.Fallbacks),
			zap.Int("single_calls", dr.SingleCalls),
			zap.Int("call_errors", dr.CallErrors),
			zap.Int("defaults", dr.Defaults),
		)
	}
	p.logger.Info(ctx, "run complete",
		zap.Int("questions", len(rep.Rows)),
		zap.Int("reused", rep.Reused),
		zap.Int("missing", rep.Missing),
	)
}
