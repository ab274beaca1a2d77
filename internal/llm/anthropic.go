package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// jsonPrefill is the assistant turn that forces the reply to continue a
// JSON object.
const jsonPrefill = "{"

type anthropicClient struct {
	client *anthropic.Client
	policy retryPolicy
	log    *slog.Logger
}

func newAnthropicClient(apiKey string, policy retryPolicy, log *slog.Logger) *anthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	log.Info("Anthropic client initialized")
	return &anthropicClient{client: &client, policy: policy, log: log}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(jsonPrefill)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	return c.policy.do(ctx, c.log, isRetryableAnthropic, func(ctx context.Context) (string, error) {
		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}

		var text string
		for _, block := range message.Content {
			if block.Type == "text" {
				text = block.Text
				break
			}
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResponse
		}
		return jsonPrefill + text, nil
	})
}

func isRetryableAnthropic(err error) bool {
	var apiErr *anthropic.Error
	return errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode)
}
