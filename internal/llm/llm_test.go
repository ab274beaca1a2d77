package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Score float64 `json:"score"`
	}

	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"plain", `{"score": 0.7}`, 0.7, false},
		{"whitespace", "\n  {\"score\": 0.2}\n", 0.2, false},
		{"code fence", "```json\n{\"score\": 0.9}\n```", 0.9, false},
		{"prose around", `Sure! Here it is: {"score": 0.4} hope that helps`, 0.4, false},
		{"empty", "   ", 0, true},
		{"no object", "score is high", 0, true},
		{"broken object", `{"score": }`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := DecodeJSON(tt.input, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Score, 1e-9)
		})
	}

	assert.ErrorIs(t, DecodeJSON("", &payload{}), io.ErrUnexpectedEOF)
}

func TestSchemaFor(t *testing.T) {
	type inner struct {
		Name string `json:"name"`
	}
	type outer struct {
		Label string  `json:"label" jsonschema:"enum=a,enum=b"`
		Items []inner `json:"items"`
	}

	schema, err := SchemaFor[outer]()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []string{"label", "items"}, schema["required"])
	assert.NotContains(t, schema, "$schema")

	props := schema["properties"].(map[string]any)
	items := props["items"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.ElementsMatch(t, []string{"name"}, items["required"])
}

var errTransient = errors.New("transient")

func TestRetryPolicy(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	retryable := func(err error) bool { return errors.Is(err, errTransient) }

	t.Run("recovers from transient failure", func(t *testing.T) {
		calls := 0
		p := retryPolicy{maxRetries: 2}
		out, err := p.do(context.Background(), log, retryable, func(context.Context) (string, error) {
			calls++
			if calls < 2 {
				return "", errTransient
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		calls := 0
		p := retryPolicy{maxRetries: 3}
		_, err := p.do(context.Background(), log, retryable, func(context.Context) (string, error) {
			calls++
			return "", ErrEmptyResponse
		})
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after budget", func(t *testing.T) {
		calls := 0
		p := retryPolicy{maxRetries: 2}
		_, err := p.do(context.Background(), log, retryable, func(context.Context) (string, error) {
			calls++
			return "", errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("per attempt timeout is retried", func(t *testing.T) {
		calls := 0
		p := retryPolicy{maxRetries: 1, timeout: 10 * time.Millisecond}
		out, err := p.do(context.Background(), log, retryable, func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "late", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "late", out)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled parent aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := retryPolicy{maxRetries: 5}
		_, err := p.do(ctx, log, retryable, func(ctx context.Context) (string, error) {
			return "", ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
