package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fyrsmithlabs/mcqrouter/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "mcqrouter", cfg.ServiceName)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.NoError(t, cfg.Validate())
}

func TestFromConfig(t *testing.T) {
	app := config.Default().Telemetry
	app.Enabled = true
	app.Protocol = "http"
	app.SampleRate = 0.25
	app.Metrics = true

	cfg := FromConfig(app, "1.2.3")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http", cfg.Protocol)
	assert.Equal(t, 0.25, cfg.SampleRate)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "dev", FromConfig(app, "").ServiceVersion)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "disabled skips checks", mutate: func(c *Config) { c.Enabled = false; c.Endpoint = "" }},
		{name: "enabled local", mutate: func(*Config) {}},
		{name: "no endpoint", mutate: func(c *Config) { c.Endpoint = "" }, wantErr: true},
		{name: "no service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad protocol", mutate: func(c *Config) { c.Protocol = "udp" }, wantErr: true},
		{name: "insecure remote", mutate: func(c *Config) { c.Endpoint = "otel.example.com:4317" }, wantErr: true},
		{name: "secure remote", mutate: func(c *Config) {
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}},
		{name: "sample rate above one", mutate: func(c *Config) { c.SampleRate = 1.5 }, wantErr: true},
		{name: "negative sample rate", mutate: func(c *Config) { c.SampleRate = -0.1 }, wantErr: true},
		{name: "metrics without interval", mutate: func(c *Config) {
			c.Metrics = true
			c.ExportInterval = 0
		}, wantErr: true},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4318":        true,
		"http://localhost:4318": true,
		"[::1]:4317":            true,
		"::1":                   true,
		"collector:4317":        false,
		"https://otel.io:443":   false,
	}
	for endpoint, want := range tests {
		cfg := &Config{Endpoint: endpoint}
		assert.Equal(t, want, cfg.isLocalEndpoint(), endpoint)
	}
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4317", stripScheme("host:4317"))
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.Nil(t, tel.LoggerProvider())
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.SampleRate = 2
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "invalid telemetry config")
}

func TestNew_EnabledInstallsProviders(t *testing.T) {
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			cfg.Protocol = protocol
			cfg.Metrics = true
			if protocol == "http" {
				cfg.Endpoint = "localhost:4318"
			}

			tel, err := New(context.Background(), cfg)
			require.NoError(t, err)
			assert.True(t, tel.IsEnabled())
			assert.False(t, tel.Health().Degraded)
			require.NotNil(t, tel.tracerProvider)
			require.NotNil(t, tel.meterProvider)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tel.Shutdown(ctx)
			assert.False(t, tel.IsEnabled())
		})
	}
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.NotPanics(t, func() {
		_ = tel.Tracer("x")
		_ = tel.Meter("x")
		tel.SetLoggerProvider(nil)
		assert.Nil(t, tel.LoggerProvider())
		assert.NoError(t, tel.Shutdown(context.Background()))
		assert.NoError(t, tel.ForceFlush(context.Background()))
	})
	assert.Equal(t, HealthStatus{Degraded: true}, tel.Health())
	assert.False(t, tel.IsEnabled())
}

func TestTelemetry_Degraded(t *testing.T) {
	tel := &Telemetry{config: NewDefaultConfig()}
	tel.healthy.Store(true)
	tel.setDegraded(assert.AnError)

	h := tel.Health()
	assert.True(t, h.Degraded)
	assert.Contains(t, h.Reason, assert.AnError.Error())
}

func TestTelemetry_TracerUsesOwnProvider(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	tel := &Telemetry{config: NewDefaultConfig(), tracerProvider: tp}

	_, span := tel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}
