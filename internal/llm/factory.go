package llm

import (
	"context"
	"fmt"
	"time"
)

// Config selects and configures a provider.
type Config struct {
	Provider  string // openai | gemini
	BaseURL   string
	APIKey    string
	Models    Models
	MaxTokens int
	Limits    map[Tier]TierLimit
	Timeout   time.Duration
}

// New builds the provider client wrapped with limits and instrumentation.
func New(ctx context.Context, cfg Config) (Client, error) {
	var (
		base Client
		err  error
	)
	switch cfg.Provider {
	case "openai", "":
		base, err = NewOpenAIClient(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Models:    cfg.Models,
			MaxTokens: cfg.MaxTokens,
		})
	case "gemini":
		base, err = NewGeminiClient(ctx, GeminiConfig{
			APIKey:    cfg.APIKey,
			Models:    cfg.Models,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumented(NewLimited(base, cfg.Limits), cfg.Timeout), nil
}
