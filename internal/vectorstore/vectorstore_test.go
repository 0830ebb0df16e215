package vectorstore

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
)

// bagEmbedder hashes words into a fixed number of buckets and normalizes,
// so texts sharing words land close together.
type bagEmbedder struct {
	dim   int
	err   error
	calls int
}

func (e *bagEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.embed(text), nil
}

func (e *bagEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	vec[0] = 0.1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[1+int(h.Sum32()%uint32(e.dim-1))] += 1
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= norm
	}
	return vec
}

var testPassages = []chromem.Document{
	{ID: "p1", Content: "Chiến thắng Điện Biên Phủ năm 1954 kết thúc chiến tranh Đông Dương", Metadata: map[string]string{"source": "history"}},
	{ID: "p2", Content: "Định luật Ohm liên hệ hiệu điện thế cường độ dòng điện và điện trở"},
	{ID: "p3", Content: "Hiến pháp quy định quyền và nghĩa vụ cơ bản của công dân"},
}

// seedChromem writes passages into a persistent chromem DB at dir, the way
// an offline indexing job would.
func seedChromem(t *testing.T, dir, collection string, e *bagEmbedder, docs []chromem.Document) {
	t.Helper()
	db, err := chromem.NewPersistentDB(dir, false)
	require.NoError(t, err)

	embed := func(_ context.Context, text string) ([]float32, error) { return e.embed(text), nil }
	col, err := db.GetOrCreateCollection(collection, nil, embed)
	require.NoError(t, err)
	if len(docs) == 0 {
		return
	}

	withVectors := make([]chromem.Document, len(docs))
	for i, d := range docs {
		d.Embedding = e.embed(d.Content)
		withVectors[i] = d
	}
	require.NoError(t, col.AddDocuments(context.Background(), withVectors, 1))
}

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "passages", false},
		{"digits and underscore", "vi_wiki_2024", false},
		{"max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"uppercase", "Passages", true},
		{"path traversal", "../passages", true},
		{"space", "vi passages", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCollectionName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChromemStore_Search(t *testing.T) {
	dir := t.TempDir()
	e := &bagEmbedder{dim: 64}
	seedChromem(t, dir, "passages", e, testPassages)

	store, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "passages"}, e, logging.NewNop())
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	before := testutil.ToFloat64(SearchTotal.WithLabelValues(providerChromem, "success"))

	results, err := store.Search(context.Background(), "Điện Biên Phủ năm 1954", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].ID)
	assert.Contains(t, results[0].Content, "Điện Biên Phủ")
	assert.Equal(t, "history", results[0].Metadata["source"])
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	assert.Equal(t, before+1, testutil.ToFloat64(SearchTotal.WithLabelValues(providerChromem, "success")))
}

func TestChromemStore_KCappedAtCount(t *testing.T) {
	dir := t.TempDir()
	e := &bagEmbedder{dim: 64}
	seedChromem(t, dir, "passages", e, testPassages)

	store, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "passages"}, e, nil)
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "hiến pháp", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestChromemStore_EmptyCollection(t *testing.T) {
	dir := t.TempDir()
	e := &bagEmbedder{dim: 64}
	seedChromem(t, dir, "passages", e, nil)

	store, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "passages"}, e, nil)
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, e.calls, "empty collection needs no query embedding")
}

func TestChromemStore_MissingCollection(t *testing.T) {
	e := &bagEmbedder{dim: 64}
	store, err := NewChromemStore(ChromemConfig{Path: t.TempDir(), Collection: "passages"}, e, nil)
	require.NoError(t, err)

	_, err = store.Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = store.Count(context.Background())
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromemStore_EmbeddingFailure(t *testing.T) {
	dir := t.TempDir()
	e := &bagEmbedder{dim: 64}
	seedChromem(t, dir, "passages", e, testPassages)

	e.err = errors.New("model not loaded")
	store, err := NewChromemStore(ChromemConfig{Path: dir, Collection: "passages"}, e, nil)
	require.NoError(t, err)

	_, err = store.Search(context.Background(), "Ohm", 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, "model not loaded")
}

func TestChromemStore_InvalidInput(t *testing.T) {
	e := &bagEmbedder{dim: 64}

	_, err := NewChromemStore(ChromemConfig{Path: t.TempDir(), Collection: "passages"}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewChromemStore(ChromemConfig{Collection: "passages"}, e, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewChromemStore(ChromemConfig{Path: t.TempDir(), Collection: "Bad-Name"}, e, nil)
	assert.ErrorIs(t, err, ErrInvalidCollectionName)

	store, err := NewChromemStore(ChromemConfig{Path: t.TempDir(), Collection: "passages"}, e, nil)
	require.NoError(t, err)
	_, err = store.Search(context.Background(), "", 3)
	assert.Error(t, err)
	_, err = store.Search(context.Background(), "q", 0)
	assert.Error(t, err)
}

func TestNewStore_UnknownProvider(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Provider: "faiss"}, &bagEmbedder{dim: 8}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewStore_Chromem(t *testing.T) {
	store, err := NewStore(context.Background(), Config{Path: t.TempDir(), Collection: "passages"}, &bagEmbedder{dim: 8}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ChromemStore{}, store)
}

func TestQdrantConfig_Validate(t *testing.T) {
	valid := QdrantConfig{Host: "localhost", Port: 6334, Collection: "passages"}
	assert.NoError(t, valid.Validate())

	tests := map[string]func(*QdrantConfig){
		"no host":          func(c *QdrantConfig) { c.Host = "" },
		"port zero":        func(c *QdrantConfig) { c.Port = 0 },
		"port too large":   func(c *QdrantConfig) { c.Port = 70000 },
		"bad collection":   func(c *QdrantConfig) { c.Collection = "A/B" },
		"empty collection": func(c *QdrantConfig) { c.Collection = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestQdrantConfig_ApplyDefaults(t *testing.T) {
	var c QdrantConfig
	c.ApplyDefaults()
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, time.Second, c.RetryBackoff)
	assert.Equal(t, 50*1024*1024, c.MaxMessageSize)
	assert.Equal(t, 5, c.CircuitBreakerThreshold)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"unavailable", status.Error(grpccodes.Unavailable, "down"), true},
		{"deadline", status.Error(grpccodes.DeadlineExceeded, "slow"), true},
		{"exhausted", status.Error(grpccodes.ResourceExhausted, "busy"), true},
		{"not found", status.Error(grpccodes.NotFound, "gone"), false},
		{"invalid", status.Error(grpccodes.InvalidArgument, "bad"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}

func newRetryStore(maxRetries, threshold int) *QdrantStore {
	return &QdrantStore{
		config: QdrantConfig{
			MaxRetries:              maxRetries,
			RetryBackoff:            time.Millisecond,
			CircuitBreakerThreshold: threshold,
		},
		logger: logging.NewNop(),
	}
}

func TestRetryOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("transient then success", func(t *testing.T) {
		s := newRetryStore(2, 10)
		calls := 0
		err := s.retryOperation(ctx, "query", func() error {
			calls++
			if calls < 3 {
				return status.Error(grpccodes.Unavailable, "down")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		s := newRetryStore(2, 10)
		calls := 0
		err := s.retryOperation(ctx, "query", func() error {
			calls++
			return status.Error(grpccodes.InvalidArgument, "bad vector size")
		})
		assert.ErrorContains(t, err, "permanent")
		assert.Equal(t, 1, calls)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		s := newRetryStore(2, 10)
		calls := 0
		err := s.retryOperation(ctx, "query", func() error {
			calls++
			return status.Error(grpccodes.Unavailable, "down")
		})
		assert.ErrorContains(t, err, "after 2 retries")
		assert.Equal(t, 3, calls)
	})

	t.Run("circuit opens", func(t *testing.T) {
		s := newRetryStore(5, 2)
		calls := 0
		err := s.retryOperation(ctx, "query", func() error {
			calls++
			return status.Error(grpccodes.Unavailable, "down")
		})
		assert.ErrorContains(t, err, "circuit breaker open")
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled while backing off", func(t *testing.T) {
		s := newRetryStore(3, 10)
		s.config.RetryBackoff = time.Hour
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.retryOperation(cctx, "query", func() error {
			return status.Error(grpccodes.Unavailable, "down")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResultFromPoint(t *testing.T) {
	p := &qdrant.ScoredPoint{
		Id:    qdrant.NewIDUUID("7f1c2a9e-0b8e-4b43-9d0e-3c1f7b1f3a10"),
		Score: 0.87,
		Payload: map[string]*qdrant.Value{
			"content": {Kind: &qdrant.Value_StringValue{StringValue: "Hà Nội là thủ đô"}},
			"source":  {Kind: &qdrant.Value_StringValue{StringValue: "wiki"}},
			"chunk":   {Kind: &qdrant.Value_IntegerValue{IntegerValue: 4}},
		},
	}

	r := resultFromPoint(p)
	assert.Equal(t, "7f1c2a9e-0b8e-4b43-9d0e-3c1f7b1f3a10", r.ID)
	assert.Equal(t, "Hà Nội là thủ đô", r.Content)
	assert.InDelta(t, 0.87, r.Score, 1e-6)
	assert.Equal(t, "wiki", r.Metadata["source"])
	assert.Equal(t, int64(4), r.Metadata["chunk"])
	assert.NotContains(t, r.Metadata, "content")

	numeric := resultFromPoint(&qdrant.ScoredPoint{Id: qdrant.NewIDNum(42)})
	assert.Equal(t, "42", numeric.ID)
	assert.Empty(t, numeric.Content)
	assert.Nil(t, numeric.Metadata)
}
