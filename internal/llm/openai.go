package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

type openAIClient struct {
	client *openai.Client
	policy retryPolicy
	log    *slog.Logger
}

func newOpenAIClient(apiKey string, policy retryPolicy, log *slog.Logger) *openAIClient {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	log.Info("OpenAI client initialized")
	return &openAIClient{client: &client, policy: policy, log: log}
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	params := responses.ResponseNewParams{
		Model:           req.Model,
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Temperature:     openai.Float(float64(req.Temperature)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	return c.policy.do(ctx, c.log, isRetryableOpenAI, func(ctx context.Context) (string, error) {
		resp, err := c.client.Responses.New(ctx, params)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp.OutputText())
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	})
}

func isRetryableOpenAI(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode)
}
