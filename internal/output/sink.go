package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
)

// Event describes one answered question.
type Event struct {
	RunID    string    `json:"run_id"`
	QID      string    `json:"qid"`
	Domain   string    `json:"domain"`
	Answer   string    `json:"answer"`
	Seconds  float64   `json:"seconds,omitempty"`
	Answered time.Time `json:"answered_at"`
}

// Sink receives answer events. Publish failures are reported but never
// change an answer.
type Sink interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }
func (NopSink) Close() error                         { return nil }

// NATSSink publishes events as JSON to "<subject>.<domain>".
type NATSSink struct {
	nc      *nats.Conn
	subject string
	owned   bool
	logger  *logging.Logger
}

// NewNATSSink connects to url and publishes under subject.
func NewNATSSink(url, subject string, logger *logging.Logger) (*NATSSink, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("mcqrouter"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info(context.Background(), "connected to NATS", zap.String("url", url), zap.String("subject", subject))
	return &NATSSink{nc: nc, subject: subject, owned: true, logger: logger}, nil
}

// NewNATSSinkFromConn publishes over an existing connection. Close does not
// close nc.
func NewNATSSinkFromConn(nc *nats.Conn, subject string, logger *logging.Logger) *NATSSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NATSSink{nc: nc, subject: subject, logger: logger}
}

// Subject returns the subject an event is published on.
func (s *NATSSink) Subject(e Event) string {
	if e.Domain == "" {
		return s.subject
	}
	return s.subject + "." + e.Domain
}

// Publish implements Sink.
func (s *NATSSink) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Answered.IsZero() {
		e.Answered = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.nc.Publish(s.Subject(e), data); err != nil {
		return fmt.Errorf("publish answer event: %w", err)
	}
	return nil
}

// Close flushes pending events.
func (s *NATSSink) Close() error {
	if err := s.nc.Flush(); err != nil {
		s.logger.Warn(context.Background(), "failed to flush NATS events", zap.Error(err))
	}
	if s.owned {
		return s.nc.Drain()
	}
	return nil
}
