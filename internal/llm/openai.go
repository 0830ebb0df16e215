package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig configures an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Models    Models
	MaxTokens int
}

// OpenAIClient talks to any OpenAI-compatible chat completions API through
// langchaingo. One langchaingo model is held per tier.
type OpenAIClient struct {
	models    map[Tier]llms.Model
	maxTokens int
}

// NewOpenAIClient creates a client for both tiers.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	c := &OpenAIClient{
		models:    make(map[Tier]llms.Model, 2),
		maxTokens: cfg.MaxTokens,
	}
	for _, tier := range []Tier{TierSmall, TierLarge} {
		name, err := cfg.Models.forTier(tier)
		if err != nil {
			return nil, err
		}
		opts := []openai.Option{
			openai.WithModel(name),
			openai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client for %s tier: %w", tier, err)
		}
		c.models[tier] = m
	}
	return c, nil
}

// Call implements Client.
func (c *OpenAIClient) Call(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error) {
	model, ok := c.models[tier]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	resp, err := model.GenerateContent(ctx, toLangchain(messages), opts...)
	if err != nil {
		return "", fmt.Errorf("openai call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

func toLangchain(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}
