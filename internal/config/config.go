// Package config provides configuration loading for mcqrouter.
//
// Configuration is layered: built-in defaults, then an optional YAML or TOML
// file, then MCQ_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the complete mcqrouter configuration.
type Config struct {
	Batch      BatchConfig      `koanf:"batch"`
	LLM        LLMConfig        `koanf:"llm"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Output     OutputConfig     `koanf:"output"`
	Journal    JournalConfig    `koanf:"journal"`
	NATS       NATSConfig       `koanf:"nats"`
	Server     ServerConfig     `koanf:"server"`
}

// BatchConfig controls how questions are grouped into model calls.
type BatchConfig struct {
	Size                 int  `koanf:"size"`
	MaxAttempts          int  `koanf:"max_attempts"`
	FallbackToIndividual bool `koanf:"fallback_to_individual"`
}

// LLMConfig configures the answering model endpoints.
type LLMConfig struct {
	Provider   string    `koanf:"provider"` // openai | gemini
	BaseURL    string    `koanf:"base_url"`
	APIKey     Secret    `koanf:"api_key"`
	SmallModel string    `koanf:"small_model"`
	LargeModel string    `koanf:"large_model"`
	MaxTokens  int       `koanf:"max_tokens"`
	Timeout    Duration  `koanf:"timeout"`
	Small      TierLimit `koanf:"small"`
	Large      TierLimit `koanf:"large"`
}

// TierLimit bounds how hard one model tier may be called.
type TierLimit struct {
	DailyQuota        int     `koanf:"daily_quota"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// RetrievalConfig configures the passage index.
type RetrievalConfig struct {
	Enabled             bool   `koanf:"enabled"`
	Provider            string `koanf:"provider"` // chromem | qdrant
	Path                string `koanf:"path"`
	Collection          string `koanf:"collection"`
	Host                string `koanf:"host"`
	Port                int    `koanf:"port"`
	UseTLS              bool   `koanf:"use_tls"`
	CandidateMultiplier int    `koanf:"candidate_multiplier"`
	CacheSize           int    `koanf:"cache_size"`
}

// EmbeddingsConfig configures query embedding for retrieval.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"` // fastembed | openai | gemini
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`
	CacheDir string `koanf:"cache_dir"`
}

// LoggingConfig holds the user-facing subset of logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"` // grpc | http
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
	Metrics     bool    `koanf:"metrics"`
}

// OutputConfig names the files a run writes.
type OutputConfig struct {
	SubmissionPath string `koanf:"submission_path"`
	TimingPath     string `koanf:"timing_path"`
}

// JournalConfig enables resumable runs.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// NATSConfig enables publishing one event per answered question.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Batch: BatchConfig{
			Size:                 10,
			MaxAttempts:          2,
			FallbackToIndividual: true,
		},
		LLM: LLMConfig{
			Provider:   "openai",
			BaseURL:    "https://api.openai.com/v1",
			SmallModel: "gpt-4o-mini",
			LargeModel: "gpt-4o",
			MaxTokens:  512,
			Timeout:    Duration(60 * time.Second),
			Small:      TierLimit{DailyQuota: 1000, RequestsPerSecond: 1, Burst: 1},
			Large:      TierLimit{DailyQuota: 500, RequestsPerSecond: 0.5, Burst: 1},
		},
		Retrieval: RetrievalConfig{
			Enabled:             false,
			Provider:            "chromem",
			Path:                "data/passages",
			Collection:          "passages",
			Host:                "localhost",
			Port:                6334,
			CandidateMultiplier: 3,
			CacheSize:           1024,
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "BAAI/bge-small-en-v1.5",
			CacheDir: "local_cache",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			ServiceName: "mcqrouter",
			Insecure:    true,
			SampleRate:  1.0,
		},
		Output: OutputConfig{
			SubmissionPath: "submission.csv",
			TimingPath:     "submission_time.csv",
		},
		Journal: JournalConfig{
			Path: "mcqrouter.db",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "mcqrouter.answers",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Batch.Size < 1 {
		return fmt.Errorf("%w: batch.size must be >= 1, got %d", ErrInvalidConfig, c.Batch.Size)
	}
	if c.Batch.MaxAttempts < 1 {
		return fmt.Errorf("%w: batch.max_attempts must be >= 1, got %d", ErrInvalidConfig, c.Batch.MaxAttempts)
	}

	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.SmallModel == "" || c.LLM.LargeModel == "" {
		return fmt.Errorf("%w: llm.small_model and llm.large_model are required", ErrInvalidConfig)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("%w: llm.max_tokens must be >= 1", ErrInvalidConfig)
	}
	for name, tier := range map[string]TierLimit{"small": c.LLM.Small, "large": c.LLM.Large} {
		if tier.DailyQuota < 0 {
			return fmt.Errorf("%w: llm.%s.daily_quota must be >= 0", ErrInvalidConfig, name)
		}
		if tier.RequestsPerSecond < 0 {
			return fmt.Errorf("%w: llm.%s.requests_per_second must be >= 0", ErrInvalidConfig, name)
		}
	}

	if c.Retrieval.Enabled {
		switch c.Retrieval.Provider {
		case "chromem":
			if c.Retrieval.Path == "" {
				return fmt.Errorf("%w: retrieval.path is required for chromem", ErrInvalidConfig)
			}
		case "qdrant":
			if c.Retrieval.Host == "" || c.Retrieval.Port <= 0 {
				return fmt.Errorf("%w: retrieval.host and retrieval.port are required for qdrant", ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: unknown retrieval.provider %q", ErrInvalidConfig, c.Retrieval.Provider)
		}
		if c.Retrieval.Collection == "" {
			return fmt.Errorf("%w: retrieval.collection is required", ErrInvalidConfig)
		}
		if c.Retrieval.CandidateMultiplier < 1 {
			return fmt.Errorf("%w: retrieval.candidate_multiplier must be >= 1", ErrInvalidConfig)
		}
		switch c.Embeddings.Provider {
		case "fastembed", "openai", "gemini":
		default:
			return fmt.Errorf("%w: unknown embeddings.provider %q", ErrInvalidConfig, c.Embeddings.Provider)
		}
	}

	switch c.Telemetry.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("%w: telemetry.protocol must be grpc or http, got %q", ErrInvalidConfig, c.Telemetry.Protocol)
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("%w: journal.path is required when journal is enabled", ErrInvalidConfig)
	}
	if c.NATS.Enabled && (c.NATS.URL == "" || c.NATS.Subject == "") {
		return fmt.Errorf("%w: nats.url and nats.subject are required when nats is enabled", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}
