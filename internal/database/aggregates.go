package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/domain"
)

func (s *sqlxStore) UpsertDailyAggregate(ctx context.Context, agg *domain.DailyAggregate) error {
	if agg == nil || agg.ChannelID == "" || !agg.Day.IsValid() {
		return fmt.Errorf("%w: daily aggregate must have channel id and valid day", domain.ErrInvalidInput)
	}
	row, err := newDailyRow(agg, s.now())
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO daily_aggregates (`+dailyColumns+`)
		VALUES (:channel_id, :day, :channel_name, :avg_sentiment, :message_count, :positive_count,
			:neutral_count, :negative_count, :burnout_risk, :top_emojis, :active_users, :sentiment_trend, :updated_at)
		ON CONFLICT (channel_id, day) DO UPDATE SET
			channel_name = excluded.channel_name,
			avg_sentiment = excluded.avg_sentiment,
			message_count = excluded.message_count,
			positive_count = excluded.positive_count,
			neutral_count = excluded.neutral_count,
			negative_count = excluded.negative_count,
			burnout_risk = excluded.burnout_risk,
			top_emojis = excluded.top_emojis,
			active_users = excluded.active_users,
			sentiment_trend = excluded.sentiment_trend,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert daily aggregate", "channel_id", agg.ChannelID, "day", row.Day, "error", err)
		return fmt.Errorf("failed to upsert daily aggregate %s/%s: %w", agg.ChannelID, row.Day, err)
	}
	return nil
}

func (s *sqlxStore) GetDailyAggregate(ctx context.Context, channelID string, day civil.Date) (mo.Option[*domain.DailyAggregate], error) {
	var row dailyRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+dailyColumns+` FROM daily_aggregates WHERE channel_id = ? AND day = ?`, channelID, day.String())
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[*domain.DailyAggregate](), nil
	}
	if err != nil {
		return mo.None[*domain.DailyAggregate](), fmt.Errorf("failed to get daily aggregate %s/%s: %w", channelID, day, err)
	}
	agg, err := row.toDomain()
	if err != nil {
		return mo.None[*domain.DailyAggregate](), err
	}
	return mo.Some(agg), nil
}

func (s *sqlxStore) ListDailyAggregatesBetween(ctx context.Context, from, to civil.Date) ([]*domain.DailyAggregate, error) {
	var rows []dailyRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+dailyColumns+` FROM daily_aggregates WHERE day >= ? AND day <= ? ORDER BY day, channel_id`,
		from.String(), to.String())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query daily aggregates", "from", from, "to", to, "error", err)
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}

	out := make([]*domain.DailyAggregate, 0, len(rows))
	for i := range rows {
		agg, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}

func (s *sqlxStore) UpsertWeeklyInsight(ctx context.Context, w *domain.WeeklyInsight) error {
	if w == nil || w.TeamID == "" || !w.WeekStart.IsValid() {
		return fmt.Errorf("%w: weekly insight must have team id and valid week start", domain.ErrInvalidInput)
	}
	row, err := newWeeklyRow(w, s.now())
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO weekly_insights (`+weeklyColumns+`)
		VALUES (:team_id, :week_start, :week_end, :team_name, :channels, :overall_trend, :overall_sentiment,
			:total_messages, :insights, :recommendations, :burnout_alerts, :engagement_score, :participation_rate,
			:response_time, :positivity_ratio, :updated_at)
		ON CONFLICT (team_id, week_start) DO UPDATE SET
			week_end = excluded.week_end,
			team_name = excluded.team_name,
			channels = excluded.channels,
			overall_trend = excluded.overall_trend,
			overall_sentiment = excluded.overall_sentiment,
			total_messages = excluded.total_messages,
			insights = excluded.insights,
			recommendations = excluded.recommendations,
			burnout_alerts = excluded.burnout_alerts,
			engagement_score = excluded.engagement_score,
			participation_rate = excluded.participation_rate,
			response_time = excluded.response_time,
			positivity_ratio = excluded.positivity_ratio,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert weekly insight", "team_id", w.TeamID, "week_start", row.WeekStart, "error", err)
		return fmt.Errorf("failed to upsert weekly insight %s/%s: %w", w.TeamID, row.WeekStart, err)
	}
	return nil
}

func (s *sqlxStore) GetWeeklyInsight(ctx context.Context, teamID string, weekStart civil.Date) (mo.Option[*domain.WeeklyInsight], error) {
	var row weeklyRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+weeklyColumns+` FROM weekly_insights WHERE team_id = ? AND week_start = ?`, teamID, weekStart.String())
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[*domain.WeeklyInsight](), nil
	}
	if err != nil {
		return mo.None[*domain.WeeklyInsight](), fmt.Errorf("failed to get weekly insight %s/%s: %w", teamID, weekStart, err)
	}
	w, err := row.toDomain()
	if err != nil {
		return mo.None[*domain.WeeklyInsight](), err
	}
	return mo.Some(w), nil
}
