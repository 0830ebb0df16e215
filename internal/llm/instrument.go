package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/mcqrouter/internal/metrics"
)

const instrumentationName = "github.com/fyrsmithlabs/mcqrouter/internal/llm"

// Instrumented records a span and a latency observation for every call and
// bounds each call by timeout when it is positive.
type Instrumented struct {
	next    Client
	tracer  trace.Tracer
	timeout time.Duration
}

// NewInstrumented wraps next.
func NewInstrumented(next Client, timeout time.Duration) *Instrumented {
	return &Instrumented{next: next, tracer: otel.Tracer(instrumentationName), timeout: timeout}
}

// Call implements Client.
func (c *Instrumented) Call(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.Call", trace.WithAttributes(
		attribute.String("llm.tier", string(tier)),
		attribute.Float64("llm.temperature", temperature),
		attribute.Int("llm.messages", len(messages)),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.next.Call(ctx, messages, tier, temperature)
	result := "success"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("llm.reply_length", len(out)))
	}
	metrics.LLMCallDuration.WithLabelValues(string(tier), result).Observe(time.Since(start).Seconds())
	return out, err
}
