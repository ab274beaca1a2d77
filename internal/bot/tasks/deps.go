// Package tasks implements the scheduled tasks of the TeamPulse service.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/teampulse/internal/ingest"
	"github.com/edgard/teampulse/internal/report"
)

// Poller fetches new messages from monitored channels.
type Poller interface {
	PollChannels(ctx context.Context) (*ingest.PollResult, error)
}

// DailyRunner runs the scheduled daily aggregation.
type DailyRunner interface {
	RunScheduledDaily(ctx context.Context) (*report.Run, error)
}

// Maintainer performs database maintenance.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
// A nil Poller leaves message_ingestion unregistered.
type TaskDeps struct {
	Logger   *slog.Logger
	Poller   Poller
	Pipeline DailyRunner
	Store    Maintainer
}
