package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type runCtxKey struct{}
type questionCtxKey struct{}
type loggerCtxKey struct{}

type questionInfo struct {
	id     string
	domain string
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}

	if q, ok := ctx.Value(questionCtxKey{}).(questionInfo); ok {
		if q.id != "" {
			fields = append(fields, zap.String("question.id", q.id))
		}
		if q.domain != "" {
			fields = append(fields, zap.String("question.domain", q.domain))
		}
	}

	return fields
}

// WithRunID tags every log line of a run with its ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext returns the run ID, or "" when unset.
func RunIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(runCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithQuestion tags log lines with the question being answered. Either value
// may be empty; a batch flush sets only the domain.
func WithQuestion(ctx context.Context, qid, domain string) context.Context {
	return context.WithValue(ctx, questionCtxKey{}, questionInfo{id: qid, domain: domain})
}

// QuestionFromContext returns the question ID and domain set by WithQuestion.
func QuestionFromContext(ctx context.Context) (qid, domain string) {
	if q, ok := ctx.Value(questionCtxKey{}).(questionInfo); ok {
		return q.id, q.domain
	}
	return "", ""
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger stored by WithLogger.
// Returns a nop logger if none is stored.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
