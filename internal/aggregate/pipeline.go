package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/report"
)

const (
	DefaultBackfillDays = 7
	MaxBackfillDays     = 30
)

// Pipeline is the entry point for operator and scheduled aggregation runs.
type Pipeline struct {
	daily  *DailyAggregator
	weekly *WeeklyAggregator
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the wall clock used to determine today.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(daily *DailyAggregator, weekly *WeeklyAggregator, loc *time.Location, logger *slog.Logger, opts ...Option) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}
	p := &Pipeline{
		daily:  daily,
		weekly: weekly,
		loc:    loc,
		now:    time.Now,
		log:    logger.With("component", "aggregation_pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Today is the current calendar day in the pipeline's timezone.
func (p *Pipeline) Today() civil.Date {
	return civil.DateOf(p.now().In(p.loc))
}

// RunDaily aggregates date, or today when absent.
func (p *Pipeline) RunDaily(ctx context.Context, date mo.Option[civil.Date]) (*report.Run, error) {
	day := date.OrElse(p.Today())
	run, err := p.daily.AggregateDay(ctx, day)
	if err != nil {
		run.Record(report.KindDay, day.String(), err)
		return run, err
	}
	return run, run.Err()
}

// RunWeekly generates the week containing weekStart, or the current week
// when absent. Any date is normalized to its week's Monday.
func (p *Pipeline) RunWeekly(ctx context.Context, weekStart mo.Option[civil.Date]) (*report.Run, error) {
	run := report.New("weekly")
	start := WeekStartOf(weekStart.OrElse(p.Today()))
	err := p.generateWeek(ctx, run, start)
	return run.Finish(), err
}

// Backfill re-aggregates the trailing days ending today, oldest first, then
// regenerates the current week.
func (p *Pipeline) Backfill(ctx context.Context, days int) (*report.Run, error) {
	if days < 1 || days > MaxBackfillDays {
		return nil, fmt.Errorf("%w: backfill days must be between 1 and %d, got %d", domain.ErrInvalidInput, MaxBackfillDays, days)
	}

	run := report.New("backfill")
	today := p.Today()
	p.log.InfoContext(ctx, "Starting backfill", "days", days, "run_id", run.ID)

	for i := days - 1; i >= 0; i-- {
		day := today.AddDays(-i)
		dayRun, err := p.daily.AggregateDay(ctx, day)
		run.Merge(dayRun)
		if err != nil {
			run.Record(report.KindDay, day.String(), err)
			p.log.ErrorContext(ctx, "Backfill aborted", "day", day, "error", err)
			return run.Finish(), err
		}
	}

	if err := p.generateWeek(ctx, run, WeekStartOf(today)); err != nil {
		return run.Finish(), err
	}

	p.log.InfoContext(ctx, "Backfill completed", "days", days, "run_id", run.ID, "failed", run.Count(report.StatusFailed))
	return run.Finish(), run.Err()
}

// RunScheduledDaily aggregates today and, on the first day of a week, the
// week that just ended.
func (p *Pipeline) RunScheduledDaily(ctx context.Context) (*report.Run, error) {
	run := report.New("scheduled_daily")
	today := p.Today()

	dayRun, err := p.daily.AggregateDay(ctx, today)
	run.Merge(dayRun)
	if err != nil {
		run.Record(report.KindDay, today.String(), err)
		return run.Finish(), err
	}

	if WeekStartOf(today) == today {
		if err := p.generateWeek(ctx, run, today.AddDays(-WeekLength)); err != nil {
			return run.Finish(), err
		}
	}
	return run.Finish(), run.Err()
}

func (p *Pipeline) generateWeek(ctx context.Context, run *report.Run, start civil.Date) error {
	insight, err := p.weekly.GenerateWeek(ctx, start)
	if err != nil {
		run.Record(report.KindWeek, start.String(), err)
		return err
	}
	if insight == nil {
		run.Skip(report.KindWeek, start.String(), "no daily aggregates")
		return nil
	}
	run.Record(report.KindWeek, start.String(), nil)
	return nil
}
