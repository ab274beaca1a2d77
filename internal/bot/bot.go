// Package bot implements service lifecycle management and component
// orchestration for the TeamPulse daemon.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner is a long-running component that blocks until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// TaskScheduler is the scheduler surface the orchestrator drives.
type TaskScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// Bot manages the lifecycle of the scheduler and the optional event listener.
type Bot struct {
	logger    *slog.Logger
	scheduler TaskScheduler
	listener  Runner
}

// NewBot creates the orchestrator. listener may be nil when real-time
// events are disabled.
func NewBot(logger *slog.Logger, scheduler TaskScheduler, listener Runner) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		scheduler: scheduler,
		listener:  listener,
	}
}

// Run starts all components and blocks until ctx is cancelled or a
// component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	if b.listener != nil {
		g.Go(func() error {
			b.logger.Info("Starting Slack event listener...")
			err := b.listener.Run(gCtx)
			b.logger.Info("Slack event listener stopped.")

			if gCtx.Err() == nil {
				b.logger.Warn("Slack event listener stopped unexpectedly without context cancellation.", "error", err)
				if err == nil {
					err = errors.New("listener exited")
				}
				return fmt.Errorf("slack listener stopped unexpectedly: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
