package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

type geminiClient struct {
	client *genai.Client
	policy retryPolicy
	log    *slog.Logger
}

func newGeminiClient(ctx context.Context, apiKey string, policy retryPolicy, log *slog.Logger) (*geminiClient, error) {
	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	log.Info("Gemini client initialized")
	return &geminiClient{client: gi, policy: policy, log: log}, nil
}

func (c *geminiClient) Complete(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  int32(req.MaxTokens),
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	return c.policy.do(ctx, c.log, isRetryableGemini, func(ctx context.Context) (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
		if err != nil {
			return "", err
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
			return "", fmt.Errorf("gemini request blocked: %v", resp.PromptFeedback.BlockReason)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	})
}

func isRetryableGemini(err error) bool {
	var apiErr *genai.APIError
	return errors.As(err, &apiErr) && retryableStatus(apiErr.Code)
}
