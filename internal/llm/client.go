// Package llm defines the model endpoint contract used by the answering path
// and its provider implementations.
//
// A Client receives an ordered list of role-tagged messages, the model tier to
// use and a sampling temperature, and returns raw reply text. Every error a
// Client returns is recoverable from the caller's point of view: the answering
// path converts it to a default answer.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Tier selects between the cheap and the strong model.
type Tier string

const (
	TierSmall Tier = "small"
	TierLarge Tier = "large"
)

var (
	// ErrUnknownTier is returned when no model is configured for a tier.
	ErrUnknownTier = errors.New("unknown model tier")

	// ErrQuotaExhausted is returned once a tier has used its daily quota.
	ErrQuotaExhausted = errors.New("model quota exhausted")

	// ErrEmptyResponse is returned when the provider sends no choices.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMissingAPIKey is returned by providers that require a key.
	ErrMissingAPIKey = errors.New("api key required")
)

// Client calls a language model.
type Client interface {
	Call(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error)

func (f ClientFunc) Call(ctx context.Context, messages []Message, tier Tier, temperature float64) (string, error) {
	return f(ctx, messages, tier, temperature)
}

// Models names the concrete model behind each tier.
type Models struct {
	Small string
	Large string
}

func (m Models) forTier(tier Tier) (string, error) {
	switch tier {
	case TierSmall:
		if m.Small != "" {
			return m.Small, nil
		}
	case TierLarge:
		if m.Large != "" {
			return m.Large, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
}

// splitSystem separates system messages from the conversation for providers
// that take the system instruction out of band.
func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
