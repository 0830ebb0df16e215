package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/answer"
	"github.com/fyrsmithlabs/mcqrouter/internal/config"
	"github.com/fyrsmithlabs/mcqrouter/internal/embeddings"
	"github.com/fyrsmithlabs/mcqrouter/internal/extract"
	"github.com/fyrsmithlabs/mcqrouter/internal/journal"
	"github.com/fyrsmithlabs/mcqrouter/internal/llm"
	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/output"
	"github.com/fyrsmithlabs/mcqrouter/internal/passage"
	"github.com/fyrsmithlabs/mcqrouter/internal/pipeline"
	"github.com/fyrsmithlabs/mcqrouter/internal/retrieval"
	"github.com/fyrsmithlabs/mcqrouter/internal/router"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
	"github.com/fyrsmithlabs/mcqrouter/internal/telemetry"
	"github.com/fyrsmithlabs/mcqrouter/internal/vectorstore"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	router   *router.Router
	answerer *answer.Answerer

	journal *journal.Store
	sink    output.Sink

	closers []func() error
}

// newApp builds every component the config asks for. Close releases them.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, sink: output.NopSink{}}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.tel, err = telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, err
	}

	a.logger, err = newLogger(cfg.Logging, a.tel)
	if err != nil {
		return nil, err
	}

	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey.Value(),
		Models: llm.Models{
			Small: cfg.LLM.SmallModel,
			Large: cfg.LLM.LargeModel,
		},
		MaxTokens: cfg.LLM.MaxTokens,
		Limits: map[llm.Tier]llm.TierLimit{
			llm.TierSmall: llm.TierLimit(cfg.LLM.Small),
			llm.TierLarge: llm.TierLimit(cfg.LLM.Large),
		},
		Timeout: cfg.LLM.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	table := strategy.Default()
	var retriever passage.Retriever
	if cfg.Retrieval.Enabled {
		r, err := a.newRetriever(ctx)
		if err != nil {
			return nil, err
		}
		retriever = r
	}

	a.answerer, err = answer.New(
		client,
		passage.NewAssembler(retriever, a.logger.Named("passage")),
		extract.New(a.logger.Named("extract")),
		table,
		answer.Config{
			MaxAttempts:          cfg.Batch.MaxAttempts,
			FallbackToIndividual: cfg.Batch.FallbackToIndividual,
		},
		a.logger.Named("answer"),
	)
	if err != nil {
		return nil, err
	}
	a.router = router.New(router.NewKeywordClassifier(), table, a.logger.Named("router"))

	if cfg.Journal.Enabled {
		a.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		a.closers = append(a.closers, a.journal.Close)
	}

	if cfg.NATS.Enabled {
		sink, err := output.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject, a.logger.Named("nats"))
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		a.sink = sink
		a.closers = append(a.closers, sink.Close)
	}

	return a, nil
}

// newRetriever opens the passage index. A failing Setup is fatal for the
// command: retrieval was asked for and cannot be served.
func (a *app) newRetriever(ctx context.Context) (*retrieval.Retriever, error) {
	cfg := a.cfg
	embedder, err := embeddings.NewProvider(ctx, embeddings.Config{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		APIKey:   cfg.Embeddings.APIKey.Value(),
		CacheDir: cfg.Embeddings.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	a.closers = append(a.closers, embedder.Close)

	storeLogger := a.logger.Named("vectorstore")
	open := func(ctx context.Context) (vectorstore.Store, error) {
		return vectorstore.NewStore(ctx, vectorstore.Config{
			Provider:   cfg.Retrieval.Provider,
			Path:       cfg.Retrieval.Path,
			Collection: cfg.Retrieval.Collection,
			Host:       cfg.Retrieval.Host,
			Port:       cfg.Retrieval.Port,
			UseTLS:     cfg.Retrieval.UseTLS,
		}, embedder, storeLogger)
	}

	r, err := retrieval.New(open, retrieval.Config{
		CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
		CacheSize:           cfg.Retrieval.CacheSize,
	}, retrieval.WithLogger(a.logger.Named("retrieval")))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, r.Close)

	if err := r.Setup(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// pipeline returns a run pipeline reading questions from input.
func (a *app) pipeline(input string) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger.Named("pipeline")),
		pipeline.WithSink(a.sink),
	}
	if a.journal != nil {
		opts = append(opts, pipeline.WithJournal(a.journal))
	}
	return pipeline.New(a.router, a.answerer, pipeline.Config{
		BatchSize: a.cfg.Batch.Size,
		Input:     input,
	}, opts...)
}

// Close releases components in reverse order of creation, then flushes
// telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.tel != nil {
		if err := a.tel.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newLogger builds the process logger. Records also go to the OpenTelemetry
// log pipeline when one is installed.
func newLogger(cfg config.LoggingConfig, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Format != "" {
		logCfg.Format = cfg.Format
	}
	if cfg.Level != "" {
		level, err := logging.LevelFromString(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging.level: %w", err)
		}
		logCfg.Level = level
	}

	provider := tel.LoggerProvider()
	logCfg.Output.OTEL = provider != nil

	logger, err := logging.NewLogger(logCfg, provider)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(context.Background(), "telemetry degraded", zap.String("reason", h.Reason))
	}
	return logger, nil
}
