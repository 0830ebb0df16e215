package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
)

// Config selects and configures a passage index backend.
type Config struct {
	Provider   string // chromem (default) | qdrant
	Path       string
	Collection string
	Host       string
	Port       int
	UseTLS     bool
}

// NewStore opens the Store named by cfg.Provider.
func NewStore(ctx context.Context, cfg Config, embedder Embedder, logger *logging.Logger) (Store, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.Path,
			Collection: cfg.Collection,
		}, embedder, logger)
	case "qdrant":
		return NewQdrantStore(ctx, QdrantConfig{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Collection: cfg.Collection,
			UseTLS:     cfg.UseTLS,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider: %s (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}
