package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/edgard/teampulse/internal/domain"
)

const (
	// WeekLength is the number of calendar days in a weekly window.
	WeekLength = 7

	burnoutAlertThreshold = 0.3
	highRiskThreshold     = 0.7
	mediumRiskThreshold   = 0.5
	lowSentimentThreshold = 0.4

	expectedMessagesPerChannel = 50
	placeholderResponseTime    = 2
)

// WeeklyStore is the persistence the weekly aggregator needs.
type WeeklyStore interface {
	ListDailyAggregatesBetween(ctx context.Context, from, to civil.Date) ([]*domain.DailyAggregate, error)
	UpsertWeeklyInsight(ctx context.Context, w *domain.WeeklyInsight) error
}

// Narrator writes the advisory text for a week. It must not fail.
type Narrator interface {
	Narrate(ctx context.Context, channels []domain.ChannelRollup) domain.Narrative
}

// Notifier is told about stored insights that carry burnout alerts.
type Notifier interface {
	NotifyWeekly(ctx context.Context, insight *domain.WeeklyInsight) error
}

// Team identifies the team a weekly insight belongs to.
type Team struct {
	ID   string
	Name string
}

// WeeklyAggregator produces one WeeklyInsight per team per week.
type WeeklyAggregator struct {
	store    WeeklyStore
	narrator Narrator
	notifier Notifier
	team     Team
	log      *slog.Logger
}

// NewWeeklyAggregator creates a weekly aggregator. notifier may be nil.
func NewWeeklyAggregator(store WeeklyStore, narrator Narrator, notifier Notifier, team Team, logger *slog.Logger) *WeeklyAggregator {
	return &WeeklyAggregator{
		store:    store,
		narrator: narrator,
		notifier: notifier,
		team:     team,
		log:      logger.With("component", "weekly_aggregator", "team_id", team.ID),
	}
}

// WeekStartOf returns the Monday on or before d.
func WeekStartOf(d civil.Date) civil.Date {
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// WeekEndOf returns the last day of the week starting at start.
func WeekEndOf(start civil.Date) civil.Date {
	return start.AddDays(WeekLength - 1)
}

// GenerateWeek recomputes and overwrites the insight for the week starting
// at weekStart. An empty week writes nothing and returns nil, nil.
func (w *WeeklyAggregator) GenerateWeek(ctx context.Context, weekStart civil.Date) (*domain.WeeklyInsight, error) {
	weekEnd := WeekEndOf(weekStart)

	daily, err := w.store.ListDailyAggregatesBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily aggregates for week %s: %w", weekStart, err)
	}

	rollups := BuildRollups(daily)
	if len(rollups) == 0 {
		w.log.InfoContext(ctx, "No daily aggregates for week, skipping insight", "week_start", weekStart)
		return nil, nil
	}

	insight := &domain.WeeklyInsight{
		TeamID:        w.team.ID,
		TeamName:      w.team.Name,
		WeekStart:     weekStart,
		WeekEnd:       weekEnd,
		Channels:      rollups,
		OverallTrend:  TeamTrend(rollups),
		BurnoutAlerts: BurnoutAlerts(rollups),
	}

	var sum float64
	for _, r := range rollups {
		sum += r.AvgSentiment
		insight.TotalMessages += r.MessageCount
	}
	insight.OverallSentiment = sum / float64(len(rollups))
	insight.KeyMetrics = domain.KeyMetrics{
		EngagementScore:   min(1, float64(insight.TotalMessages)/float64(len(rollups)*expectedMessagesPerChannel)),
		ParticipationRate: 1,
		ResponseTime:      placeholderResponseTime,
		PositivityRatio:   insight.OverallSentiment,
	}

	narrative := w.narrator.Narrate(ctx, rollups)
	insight.Insights = narrative.Insights
	insight.Recommendations = narrative.Recommendations

	if err := w.store.UpsertWeeklyInsight(ctx, insight); err != nil {
		return nil, fmt.Errorf("failed to store weekly insight for %s: %w", weekStart, err)
	}

	w.log.InfoContext(ctx, "Weekly insight generated",
		"week_start", weekStart,
		"channels", len(rollups),
		"total_messages", insight.TotalMessages,
		"alerts", len(insight.BurnoutAlerts),
		"trend", insight.OverallTrend)

	if w.notifier != nil && len(insight.BurnoutAlerts) > 0 {
		if err := w.notifier.NotifyWeekly(ctx, insight); err != nil {
			w.log.WarnContext(ctx, "Failed to deliver burnout alert notification", "week_start", weekStart, "error", err)
		}
	}
	return insight, nil
}

// BuildRollups groups daily records by channel in first-seen order. Each
// day counts equally toward the channel's means, which are settled to 1e-9.
func BuildRollups(daily []*domain.DailyAggregate) []domain.ChannelRollup {
	type series struct {
		rollup domain.ChannelRollup
		scores []float64
		risk   float64
	}

	order := make([]string, 0)
	byChannel := make(map[string]*series)
	for _, d := range daily {
		s, ok := byChannel[d.ChannelID]
		if !ok {
			s = &series{rollup: domain.ChannelRollup{ChannelID: d.ChannelID, ChannelName: d.ChannelName}}
			byChannel[d.ChannelID] = s
			order = append(order, d.ChannelID)
		}
		s.rollup.MessageCount += d.MessageCount
		s.scores = append(s.scores, d.AvgSentiment)
		s.risk += d.BurnoutRisk
	}

	out := make([]domain.ChannelRollup, 0, len(order))
	for _, id := range order {
		s := byChannel[id]
		n := float64(len(s.scores))
		s.rollup.AvgSentiment = domain.Settle(mean(s.scores))
		s.rollup.BurnoutRisk = domain.Settle(s.risk / n)
		s.rollup.Trend = HalfSplitTrend(s.scores)
		out = append(out, s.rollup)
	}
	return out
}

// HalfSplitTrend compares the mean of the first ceil(n/2) values with the
// mean of the rest. Fewer than two values are stable.
func HalfSplitTrend(scores []float64) domain.Trend {
	if len(scores) < 2 {
		return domain.TrendStable
	}
	mid := (len(scores) + 1) / 2
	return domain.ClassifyTrend(mean(scores[mid:]) - mean(scores[:mid]))
}

// TeamTrend is improving or declining when more channels move that way
// than the other, stable on a tie.
func TeamTrend(rollups []domain.ChannelRollup) domain.Trend {
	var improving, declining int
	for _, r := range rollups {
		switch r.Trend {
		case domain.TrendImproving:
			improving++
		case domain.TrendDeclining:
			declining++
		}
	}
	switch {
	case improving > declining:
		return domain.TrendImproving
	case declining > improving:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// BurnoutAlerts lists channels whose weekly burnout risk exceeds 0.3.
func BurnoutAlerts(rollups []domain.ChannelRollup) []domain.BurnoutAlert {
	alerts := make([]domain.BurnoutAlert, 0)
	for _, r := range rollups {
		risk := domain.Settle(r.BurnoutRisk)
		if risk <= burnoutAlertThreshold {
			continue
		}
		level := domain.RiskLow
		switch {
		case risk > highRiskThreshold:
			level = domain.RiskHigh
		case risk > mediumRiskThreshold:
			level = domain.RiskMedium
		}

		signals := []string{fmt.Sprintf("Burnout risk: %.1f%%", risk*100)}
		if domain.Settle(r.AvgSentiment) < lowSentimentThreshold {
			signals = append(signals, "Low sentiment detected")
		}
		if r.Trend == domain.TrendDeclining {
			signals = append(signals, "Declining sentiment trend")
		}

		alerts = append(alerts, domain.BurnoutAlert{
			ChannelID:   r.ChannelID,
			ChannelName: r.ChannelName,
			RiskLevel:   level,
			Signals:     signals,
		})
	}
	return alerts
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
