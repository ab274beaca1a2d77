// Package aggregate rolls scored messages up into daily channel aggregates
// and weekly team insights, and drives backfills over trailing windows.
package aggregate

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/report"
)

// TopEmojiLimit is the number of emojis kept per daily aggregate.
const TopEmojiLimit = 10

// DailyStore is the persistence the daily aggregator needs.
type DailyStore interface {
	ListMessagesBetween(ctx context.Context, start, end time.Time) ([]*domain.ScoredMessage, error)
	GetDailyAggregate(ctx context.Context, channelID string, day civil.Date) (mo.Option[*domain.DailyAggregate], error)
	UpsertDailyAggregate(ctx context.Context, agg *domain.DailyAggregate) error
}

// DailyAggregator computes one DailyAggregate per channel active on a day.
type DailyAggregator struct {
	store DailyStore
	loc   *time.Location
	log   *slog.Logger
}

// NewDailyAggregator creates an aggregator bucketing days in loc.
func NewDailyAggregator(store DailyStore, loc *time.Location, logger *slog.Logger) *DailyAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyAggregator{
		store: store,
		loc:   loc,
		log:   logger.With("component", "daily_aggregator"),
	}
}

// DayBounds returns the closed interval covering day in loc.
func DayBounds(day civil.Date, loc *time.Location) (time.Time, time.Time) {
	start := day.In(loc)
	end := day.AddDays(1).In(loc).Add(-time.Microsecond)
	return start, end
}

// AggregateDay recomputes and overwrites the aggregates for day. The
// returned error is non-nil only when messages cannot be loaded; per
// channel failures are recorded in the run.
func (a *DailyAggregator) AggregateDay(ctx context.Context, day civil.Date) (*report.Run, error) {
	run := report.New("daily")
	start, end := DayBounds(day, a.loc)

	msgs, err := a.store.ListMessagesBetween(ctx, start, end)
	if err != nil {
		return run.Finish(), fmt.Errorf("failed to load messages for %s: %w", day, err)
	}

	aggs := BuildDailyAggregates(day, msgs)
	if len(aggs) == 0 {
		a.log.InfoContext(ctx, "No messages for day", "day", day)
		run.Skip(report.KindDay, day.String(), "no messages")
		return run.Finish(), nil
	}

	for _, agg := range aggs {
		if err := ctx.Err(); err != nil {
			return run.Finish(), err
		}
		err := a.applyTrendAndStore(ctx, agg)
		if err != nil {
			a.log.ErrorContext(ctx, "Failed to aggregate channel", "day", day, "channel_id", agg.ChannelID, "error", err)
		}
		run.Record(report.KindChannel, agg.ChannelID+"@"+day.String(), err)
	}

	a.log.InfoContext(ctx, "Daily aggregation completed",
		"day", day,
		"messages", len(msgs),
		"channels", len(aggs),
		"failed", run.Count(report.StatusFailed))
	return run.Finish(), nil
}

func (a *DailyAggregator) applyTrendAndStore(ctx context.Context, agg *domain.DailyAggregate) error {
	prev, err := a.store.GetDailyAggregate(ctx, agg.ChannelID, agg.Day.AddDays(-1))
	if err != nil {
		return err
	}
	agg.Trend = domain.TrendStable
	if p, ok := prev.Get(); ok {
		agg.Trend = domain.ClassifyTrend(agg.AvgSentiment - p.AvgSentiment)
	}
	return a.store.UpsertDailyAggregate(ctx, agg)
}

// BuildDailyAggregates groups msgs by channel and computes everything but
// the trend, which needs the prior day. Output is ordered by channel id.
func BuildDailyAggregates(day civil.Date, msgs []*domain.ScoredMessage) []*domain.DailyAggregate {
	type group struct {
		agg     *domain.DailyAggregate
		sum     float64
		burnout int
		authors map[string]struct{}
		emojis  *emojiTally
	}

	groups := make(map[string]*group)
	for _, m := range msgs {
		g, ok := groups[m.ChannelID]
		if !ok {
			g = &group{
				agg: &domain.DailyAggregate{
					ChannelID:   m.ChannelID,
					ChannelName: m.ChannelName,
					Day:         day,
					Trend:       domain.TrendStable,
				},
				authors: make(map[string]struct{}),
				emojis:  newEmojiTally(),
			}
			groups[m.ChannelID] = g
		}

		g.agg.MessageCount++
		g.sum += m.Score
		switch m.Label {
		case domain.LabelPositive:
			g.agg.PositiveCount++
		case domain.LabelNegative:
			g.agg.NegativeCount++
		default:
			g.agg.NeutralCount++
		}
		if m.BurnoutSignals {
			g.burnout++
		}
		g.authors[m.AuthorID] = struct{}{}
		for _, r := range m.Reactions {
			g.emojis.add(r)
		}
	}

	out := make([]*domain.DailyAggregate, 0, len(groups))
	for _, g := range groups {
		n := float64(g.agg.MessageCount)
		g.agg.AvgSentiment = g.sum / n
		g.agg.BurnoutRisk = float64(g.burnout) / n
		g.agg.ActiveUsers = len(g.authors)
		g.agg.TopEmojis = g.emojis.top(TopEmojiLimit)
		out = append(out, g.agg)
	}
	slices.SortFunc(out, func(a, b *domain.DailyAggregate) int {
		return cmp.Compare(a.ChannelID, b.ChannelID)
	})
	return out
}

type emojiTally struct {
	order  []string
	counts map[string]*domain.EmojiVolume
}

func newEmojiTally() *emojiTally {
	return &emojiTally{counts: make(map[string]*domain.EmojiVolume)}
}

// add sums counts per emoji. The sentiment of the first occurrence is kept.
func (t *emojiTally) add(r domain.Reaction) {
	if r.Count <= 0 || r.Emoji == "" {
		return
	}
	if v, ok := t.counts[r.Emoji]; ok {
		v.Count += r.Count
		return
	}
	t.counts[r.Emoji] = &domain.EmojiVolume{Emoji: r.Emoji, Count: r.Count, Sentiment: r.Sentiment}
	t.order = append(t.order, r.Emoji)
}

// top returns the n highest counts, ties broken by emoji string.
func (t *emojiTally) top(n int) []domain.EmojiVolume {
	out := make([]domain.EmojiVolume, 0, len(t.order))
	for _, e := range t.order {
		out = append(out, *t.counts[e])
	}
	slices.SortStableFunc(out, func(a, b domain.EmojiVolume) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Emoji, b.Emoji)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
