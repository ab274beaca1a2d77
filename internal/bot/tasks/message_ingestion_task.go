package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/teampulse/internal/report"
)

const ingestionTimeout = 10 * time.Minute

func newMessageIngestionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "message_ingestion")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled message ingestion...")
		startTime := time.Now()

		timeoutCtx, cancel := context.WithTimeout(ctx, ingestionTimeout)
		defer cancel()

		res, err := deps.Poller.PollChannels(timeoutCtx)
		duration := time.Since(startTime)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.WarnContext(ctx, "Message ingestion timed out or was cancelled", "error", err, "duration", duration)
			return fmt.Errorf("message ingestion timed out or was cancelled: %w", err)
		}
		if err != nil {
			log.ErrorContext(ctx, "Message ingestion failed", "error", err, "duration", duration)
			return fmt.Errorf("message ingestion failed: %w", err)
		}

		log.InfoContext(ctx, "Message ingestion completed",
			"processed", res.TotalProcessed,
			"channels", len(res.Channels),
			"failed_units", res.Run.Count(report.StatusFailed),
			"duration", duration)
		return nil
	}
}
