// Package llm exposes a provider neutral text completion client backed by
// Gemini, Anthropic or OpenAI.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/teampulse/internal/config"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("model returned empty response")

// Request is a single prompt sent to a model. Output is expected to be one
// JSON object; Schema, when set, is forwarded to providers that enforce it.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	SchemaName  string
	Schema      map[string]any
}

// Client performs completions. Implementations retry transient provider
// failures and bound every attempt by the configured timeout.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm api key is required", config.ErrConfiguration)
	}

	policy := retryPolicy{
		maxRetries: cfg.MaxRetries,
		delay:      cfg.RetryDelay,
		timeout:    cfg.Timeout,
	}
	log := logger.With("component", "llm_client", "provider", cfg.Provider)

	switch cfg.Provider {
	case "gemini":
		return newGeminiClient(ctx, cfg.APIKey, policy, log)
	case "anthropic":
		return newAnthropicClient(cfg.APIKey, policy, log), nil
	case "openai":
		return newOpenAIClient(cfg.APIKey, policy, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", config.ErrConfiguration, cfg.Provider)
	}
}
