package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey    string
	Models    Models
	MaxTokens int
}

// GeminiClient calls Gemini models through the Google GenAI SDK.
type GeminiClient struct {
	client    *genai.Client
	models    Models
	maxTokens int
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if _, err := cfg.Models.forTier(TierSmall); err != nil {
		return nil, err
	}
	if _, err := cfg.Models.forTier(TierLarge); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, models: cfg.Models, maxTokens: cfg.MaxTokens}, nil
}

// Call implements Client. System messages become the system instruction.
func (g *GeminiClient) Call(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error) {
	model, err := g.models.forTier(tier)
	if err != nil {
		return "", err
	}

	system, rest := splitSystem(messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini call failed: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return result.Text(), nil
}
