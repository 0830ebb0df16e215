// Package retrieval answers passage queries for retrieval-augmented
// strategies: vector candidates from a vectorstore.Store, re-ranked by
// keyword overlap and cached per query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
	"github.com/fyrsmithlabs/mcqrouter/internal/passage"
	"github.com/fyrsmithlabs/mcqrouter/internal/vectorstore"
)

var tracer = otel.Tracer("mcqrouter.retrieval")

// ErrNotReady is returned by Query before a successful Setup.
var ErrNotReady = errors.New("retriever not set up")

// Opener opens the passage index. It is called once, by Setup.
type Opener func(ctx context.Context) (vectorstore.Store, error)

// Config tunes candidate fan-out and caching.
type Config struct {
	// CandidateMultiplier scales k to the number of vector candidates
	// fetched before re-ranking.
	CandidateMultiplier int

	// CacheSize is the number of (query, k) results kept; 0 disables caching.
	CacheSize int
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithReranker replaces the keyword reranker.
func WithReranker(rr Reranker) Option {
	return func(r *Retriever) { r.reranker = rr }
}

type cacheKey struct {
	text string
	k    int
}

// Retriever implements passage.Retriever.
type Retriever struct {
	open     Opener
	cfg      Config
	reranker Reranker
	logger   *logging.Logger
	cache    *lru.Cache[cacheKey, []passage.Passage]

	once     sync.Once
	setupErr error

	mu    sync.RWMutex
	store vectorstore.Store
}

// New creates a Retriever. Nothing is opened until Setup.
func New(open Opener, cfg Config, opts ...Option) (*Retriever, error) {
	if open == nil {
		return nil, fmt.Errorf("retrieval: opener is required")
	}
	if cfg.CandidateMultiplier < 1 {
		cfg.CandidateMultiplier = 1
	}

	r := &Retriever{
		open:     open,
		cfg:      cfg,
		reranker: NewKeywordReranker(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[cacheKey, []passage.Passage](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating retrieval cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Setup opens the index. Only the first call does work; later calls return
// the first call's result.
func (r *Retriever) Setup(ctx context.Context) error {
	r.once.Do(func() {
		store, err := r.open(ctx)
		if err != nil {
			r.setupErr = fmt.Errorf("opening passage index: %w", err)
			return
		}

		n, err := store.Count(ctx)
		switch {
		case err != nil:
			r.logger.Warn(ctx, "passage index count failed", zap.Error(err))
		case n == 0:
			r.logger.Warn(ctx, "passage index is empty, retrieval will return no context")
		default:
			r.logger.Info(ctx, "passage index ready", zap.Int("passages", n))
		}

		r.mu.Lock()
		r.store = store
		r.mu.Unlock()
	})
	return r.setupErr
}

// Query returns up to k passages for text, best first.
func (r *Retriever) Query(ctx context.Context, text string, k int) ([]passage.Passage, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Query")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	r.mu.RLock()
	store := r.store
	r.mu.RUnlock()
	if store == nil {
		span.SetStatus(codes.Error, ErrNotReady.Error())
		return nil, ErrNotReady
	}
	if k <= 0 || text == "" {
		return nil, nil
	}

	key := cacheKey{text: text, k: k}
	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			metrics.RetrievalCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return clonePassages(hit), nil
		}
		metrics.RetrievalCache.WithLabelValues("miss").Inc()
	}

	candidates, err := store.Search(ctx, text, k*r.cfg.CandidateMultiplier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching passages: %w", err)
	}

	ranked := r.reranker.Rerank(text, candidates, k)
	out := make([]passage.Passage, len(ranked))
	for i, s := range ranked {
		out[i] = passage.Passage{
			Text:   s.Content,
			Score:  float64(s.CombinedScore),
			Source: s.ID,
		}
	}

	r.logger.Trace(ctx, "retrieved passages",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(out)),
	)
	span.SetAttributes(attribute.Int("results_count", len(out)))

	if r.cache != nil {
		r.cache.Add(key, clonePassages(out))
	}
	return out, nil
}

// Close closes the index if Setup opened one.
func (r *Retriever) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func clonePassages(ps []passage.Passage) []passage.Passage {
	return append([]passage.Passage(nil), ps...)
}

var _ passage.Retriever = (*Retriever)(nil)
