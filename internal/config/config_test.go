package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.MaxAttempts)
	assert.True(t, cfg.Batch.FallbackToIndividual)
	assert.Equal(t, 1000, cfg.LLM.Small.DailyQuota)
	assert.Equal(t, 500, cfg.LLM.Large.DailyQuota)
	assert.Equal(t, "submission.csv", cfg.Output.SubmissionPath)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
batch:
  size: 4
  fallback_to_individual: false
llm:
  provider: gemini
  api_key: sk-yaml
  timeout: 15s
  small:
    daily_quota: 20
retrieval:
  enabled: true
  provider: qdrant
  collection: vi_passages
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.MaxAttempts, "unset keys keep defaults")
	assert.False(t, cfg.Batch.FallbackToIndividual)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "sk-yaml", cfg.LLM.APIKey.Value())
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout.Duration())
	assert.Equal(t, 20, cfg.LLM.Small.DailyQuota)
	assert.Equal(t, 500, cfg.LLM.Large.DailyQuota)
	assert.Equal(t, "qdrant", cfg.Retrieval.Provider)
	assert.Equal(t, "vi_passages", cfg.Retrieval.Collection)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[batch]
size = 7

[server]
port = 9191
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Batch.Size)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", "batch:\n  size: 4\n")
	t.Setenv("MCQ_BATCH_SIZE", "12")
	t.Setenv("MCQ_LLM_SMALL_MODEL", "qwen-small")
	t.Setenv("MCQ_LLM_LARGE_DAILY_QUOTA", "42")
	t.Setenv("MCQ_JOURNAL_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Batch.Size)
	assert.Equal(t, "qwen-small", cfg.LLM.SmallModel)
	assert.Equal(t, 42, cfg.LLM.Large.DailyQuota)
	assert.True(t, cfg.Journal.Enabled)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.ini", "a=b"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("world writable", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", "batch:\n  size: 3\n")
		require.NoError(t, os.Chmod(path, 0o666))
		_, err := Load(path)
		assert.ErrorContains(t, err, "insecure config file permissions")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.yaml", "batch:\n  size: 0\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.Batch.MaxAttempts = 0 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "llamacpp" }},
		{"missing model", func(c *Config) { c.LLM.LargeModel = "" }},
		{"negative quota", func(c *Config) { c.LLM.Small.DailyQuota = -1 }},
		{"unknown retrieval provider", func(c *Config) {
			c.Retrieval.Enabled = true
			c.Retrieval.Provider = "faiss"
		}},
		{"unknown embeddings provider", func(c *Config) {
			c.Retrieval.Enabled = true
			c.Embeddings.Provider = "sbert"
		}},
		{"bad protocol", func(c *Config) { c.Telemetry.Protocol = "udp" }},
		{"journal without path", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Path = ""
		}},
		{"nats without subject", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.Subject = ""
		}},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSecret_NeverLeaks(t *testing.T) {
	s := Secret("sk-live-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "sk-live")
	assert.Equal(t, "sk-live-123", s.Value())

	b, err := json.Marshal(struct{ Key Secret }{Key: s})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sk-live")

	assert.False(t, Secret("").IsSet())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"MCQ_BATCH_SIZE":                    "batch.size",
		"MCQ_LLM_API_KEY":                   "llm.api_key",
		"MCQ_LLM_SMALL_MODEL":               "llm.small_model",
		"MCQ_LLM_SMALL_DAILY_QUOTA":         "llm.small.daily_quota",
		"MCQ_LLM_LARGE_REQUESTS_PER_SECOND": "llm.large.requests_per_second",
		"MCQ_OUTPUT_SUBMISSION_PATH":        "output.submission_path",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
