// Package embeddings turns query text into vectors for passage retrieval.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is returned for unusable provider settings.
	ErrInvalidConfig = errors.New("invalid embeddings config")

	// ErrEmptyInput is returned when there is nothing to embed.
	ErrEmptyInput = errors.New("empty embedding input")

	// ErrEmbeddingFailed wraps provider failures.
	ErrEmbeddingFailed = errors.New("embedding failed")
)

// Embedder produces vectors for queries and documents.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is an Embedder that owns resources.
type Provider interface {
	Embedder
	// Dimension returns the vector size, or 0 when unknown until first use.
	Dimension() int
	Close() error
}

// Config selects a provider.
type Config struct {
	Provider string // fastembed | openai | gemini
	Model    string
	BaseURL  string
	APIKey   string
	CacheDir string
}

// NewProvider creates the configured provider, wrapped with metrics.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "fastembed", "":
		p, err = NewFastEmbedProvider(FastEmbedConfig{Model: cfg.Model, CacheDir: cfg.CacheDir})
	case "openai":
		p, err = NewOpenAIProvider(OpenAIConfig{Model: cfg.Model, BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
	case "gemini":
		p, err = NewGeminiProvider(ctx, GeminiConfig{Model: cfg.Model, APIKey: cfg.APIKey})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumented(p, cfg.Model, nil), nil
}

// detectDimensionFromModel guesses the vector size from a model name.
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "text-embedding-3-large"):
		return 3072
	case strings.Contains(m, "text-embedding-3-small"), strings.Contains(m, "ada-002"):
		return 1536
	case strings.Contains(m, "gemini-embedding"), strings.Contains(m, "base"):
		return 768
	case strings.Contains(m, "large"):
		return 1024
	default:
		return 0
	}
}
