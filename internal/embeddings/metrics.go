package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/mcqrouter/internal/embeddings"

// Instrumented records OpenTelemetry metrics around a Provider.
type Instrumented struct {
	Provider
	model     string
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewInstrumented wraps p. A nil meter uses the global MeterProvider.
// Instruments that fail to register are skipped.
func NewInstrumented(p Provider, model string, meter metric.Meter) *Instrumented {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	in := &Instrumented{Provider: p, model: model}

	in.duration, _ = meter.Float64Histogram(
		"mcqrouter.embedding.duration_seconds",
		metric.WithDescription("Duration of embedding generation in seconds, by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	in.batchSize, _ = meter.Int64Histogram(
		"mcqrouter.embedding.batch_size",
		metric.WithDescription("Number of texts per embedding request"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	)
	in.errors, _ = meter.Int64Counter(
		"mcqrouter.embedding.errors_total",
		metric.WithDescription("Embedding failures by model and operation"),
		metric.WithUnit("{error}"),
	)
	return in
}

// EmbedQuery implements Embedder.
func (in *Instrumented) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := in.Provider.EmbedQuery(ctx, text)
	in.record(ctx, "query", time.Since(start), 1, err)
	return vec, err
}

// EmbedDocuments implements Embedder.
func (in *Instrumented) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := in.Provider.EmbedDocuments(ctx, texts)
	in.record(ctx, "documents", time.Since(start), len(texts), err)
	return vecs, err
}

func (in *Instrumented) record(ctx context.Context, operation string, d time.Duration, n int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", in.model),
		attribute.String("operation", operation),
	)
	if in.duration != nil {
		in.duration.Record(ctx, d.Seconds(), attrs)
	}
	if n > 0 && in.batchSize != nil {
		in.batchSize.Record(ctx, int64(n), attrs)
	}
	if err != nil && in.errors != nil {
		in.errors.Add(ctx, 1, attrs)
	}
}
