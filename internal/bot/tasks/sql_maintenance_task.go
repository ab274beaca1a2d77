package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const maintenanceTimeout = 30 * time.Minute

// newSQLMaintenanceTask compacts the message and aggregate store. VACUUM
// holds an exclusive lock, so it is bounded by maintenanceTimeout.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Compacting sentiment store...")
		startTime := time.Now()

		timeoutCtx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()

		err := deps.Store.RunSQLMaintenance(timeoutCtx)
		duration := time.Since(startTime)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.WarnContext(ctx, "Store compaction timed out or was cancelled", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance timed out or was cancelled: %w", err)
		}
		if err != nil {
			log.ErrorContext(ctx, "Store compaction failed", "error", err, "duration", duration)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Sentiment store compacted", "duration", duration)
		return nil
	}
}
