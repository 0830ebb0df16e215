package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/mcqrouter/internal/http"

// HTTPMetrics records request and answer instruments through the global
// OpenTelemetry meter. Instruments that fail to register are skipped.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	answers  metric.Int64Counter
}

// NewHTTPMetrics creates the server instruments.
func NewHTTPMetrics(logger *logging.Logger) *HTTPMetrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	meter := otel.Meter(httpInstrumentationName)
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn(context.Background(), "failed to create http instrument",
				zap.String("instrument", name), zap.Error(err))
		}
	}

	m := &HTTPMetrics{}
	var err error

	m.requests, err = meter.Int64Counter("mcqrouter.http.requests_total",
		metric.WithDescription("HTTP requests by method, endpoint and status"),
		metric.WithUnit("{request}"),
	)
	warn("requests_total", err)

	m.duration, err = meter.Float64Histogram("mcqrouter.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration; answer requests include the model call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	warn("request_duration_seconds", err)

	m.inflight, err = meter.Int64UpDownCounter("mcqrouter.http.active_requests",
		metric.WithDescription("Requests currently being served"),
		metric.WithUnit("{request}"),
	)
	warn("active_requests", err)

	m.answers, err = meter.Int64Counter("mcqrouter.http.answers_total",
		metric.WithDescription("Answers served by domain; defaulted marks the fallback letter"),
		metric.WithUnit("{answer}"),
	)
	warn("answers_total", err)

	return m
}

// MetricsMiddleware returns an Echo middleware that records request metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.inflight != nil {
				m.inflight.Add(ctx, 1)
			}

			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", normalizePath(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.duration != nil {
				m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.inflight != nil {
				m.inflight.Add(ctx, -1)
			}
			return err
		}
	}
}

// recordAnswer counts one served answer.
func (m *HTTPMetrics) recordAnswer(ctx context.Context, d question.Domain, defaulted bool) {
	if m == nil || m.answers == nil {
		return
	}
	m.answers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", d.String()),
		attribute.Bool("defaulted", defaulted),
	))
}

// normalizePath maps an unmatched route to "/". All routes are fixed, so
// the echo route path is already low-cardinality.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
