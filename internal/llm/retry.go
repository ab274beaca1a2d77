package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type retryPolicy struct {
	maxRetries int
	delay      time.Duration
	timeout    time.Duration
}

type callFunc func(ctx context.Context) (string, error)

// do runs call until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. A per-attempt timeout counts as retryable as long
// as the parent context is still alive.
func (p retryPolicy) do(ctx context.Context, log *slog.Logger, retryable func(error) bool, call callFunc) (string, error) {
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		var out string
		out, err = p.attempt(ctx, call)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("model call aborted: %w", err)
		}

		timedOut := errors.Is(err, context.DeadlineExceeded)
		if !timedOut && !retryable(err) {
			log.WarnContext(ctx, "Model call failed with non-retriable error", "error", err)
			return "", fmt.Errorf("model call failed: %w", err)
		}
		if attempt == p.maxRetries {
			break
		}

		log.InfoContext(ctx, "Retrying model call", "attempt", attempt+1, "max_retries", p.maxRetries, "delay", p.delay, "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("model call aborted: %w", ctx.Err())
		case <-time.After(p.delay):
		}
	}

	log.WarnContext(ctx, "Model call failed after max retries", "max_retries", p.maxRetries, "error", err)
	return "", fmt.Errorf("model call failed after %d retries: %w", p.maxRetries, err)
}

func (p retryPolicy) attempt(ctx context.Context, call callFunc) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return call(ctx)
}

func retryableStatus(code int) bool {
	return code == 429 || code == 500 || code == 502 || code == 503 || code == 504
}
