// Package vectorstore queries a prebuilt passage index.
//
// Two backends are supported: an embedded chromem-go database on disk and a
// remote Qdrant collection over gRPC. Both are read-only here; the index is
// built elsewhere.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrCollectionNotFound is returned when the configured collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates the query could not be embedded.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Embedder turns query text into a vector in the index's embedding space.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchResult is one passage returned by a similarity search.
type SearchResult struct {
	ID      string
	Content string

	// Score is the similarity score (higher = more similar).
	Score float32

	Metadata map[string]interface{}
}

// Store is a read-only passage index.
type Store interface {
	// Search returns at most k passages ordered by descending similarity.
	// An empty collection yields no results and no error.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Count returns the number of passages in the collection.
	Count(ctx context.Context) (int, error)

	Close() error
}

// ValidateCollectionName rejects names outside ^[a-z0-9_]{1,64}$.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

func validateSearch(query string, k int) error {
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}
