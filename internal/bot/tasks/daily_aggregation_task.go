package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/teampulse/internal/report"
)

const aggregationTimeout = 15 * time.Minute

// newDailyAggregationTask aggregates the current day and, on the first day
// of a week, closes the previous week.
func newDailyAggregationTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_aggregation")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled daily aggregation...")
		startTime := time.Now()

		timeoutCtx, cancel := context.WithTimeout(ctx, aggregationTimeout)
		defer cancel()

		run, err := deps.Pipeline.RunScheduledDaily(timeoutCtx)
		duration := time.Since(startTime)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.WarnContext(ctx, "Daily aggregation timed out or was cancelled", "error", err, "duration", duration)
			return fmt.Errorf("daily aggregation timed out or was cancelled: %w", err)
		}
		if err != nil {
			log.ErrorContext(ctx, "Daily aggregation failed",
				"error", err,
				"run_id", run.ID,
				"failed_units", run.Count(report.StatusFailed),
				"duration", duration)
			return fmt.Errorf("daily aggregation failed: %w", err)
		}

		log.InfoContext(ctx, "Daily aggregation completed",
			"run_id", run.ID,
			"units", len(run.Units),
			"duration", duration)
		return nil
	}
}
