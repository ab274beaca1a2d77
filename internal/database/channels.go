package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/domain"
)

func (s *sqlxStore) UpsertChannel(ctx context.Context, ch *domain.Channel) error {
	if ch == nil || ch.ID == "" {
		return fmt.Errorf("%w: channel must have an id", domain.ErrInvalidInput)
	}
	if ch.AddedAt.IsZero() {
		ch.AddedAt = s.now()
	}
	row := newChannelRow(ch, s.now())

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO channels (`+channelColumns+`)
		VALUES (:channel_id, :name, :team_id, :team_name, :is_monitored, :added_by, :added_at,
			:last_message_at, :include_bots, :include_threads, :total_messages, :avg_daily_sentiment, :updated_at)
		ON CONFLICT (channel_id) DO UPDATE SET
			name = excluded.name,
			team_id = excluded.team_id,
			team_name = excluded.team_name,
			is_monitored = excluded.is_monitored,
			added_by = excluded.added_by,
			added_at = excluded.added_at,
			last_message_at = excluded.last_message_at,
			include_bots = excluded.include_bots,
			include_threads = excluded.include_threads,
			total_messages = excluded.total_messages,
			avg_daily_sentiment = excluded.avg_daily_sentiment,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("failed to upsert channel %s: %w", ch.ID, err)
	}
	return nil
}

func (s *sqlxStore) GetChannel(ctx context.Context, channelID string) (mo.Option[*domain.Channel], error) {
	var row channelRow
	err := s.db.GetContext(ctx, &row, `SELECT `+channelColumns+` FROM channels WHERE channel_id = ?`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[*domain.Channel](), nil
	}
	if err != nil {
		return mo.None[*domain.Channel](), fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	return mo.Some(row.toDomain()), nil
}

func (s *sqlxStore) ListChannels(ctx context.Context, teamID string) ([]*domain.Channel, error) {
	return s.selectChannels(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE team_id = ? ORDER BY name, channel_id`, teamID)
}

func (s *sqlxStore) ListMonitoredChannels(ctx context.Context, teamID string) ([]*domain.Channel, error) {
	return s.selectChannels(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE team_id = ? AND is_monitored = 1 ORDER BY name, channel_id`, teamID)
}

func (s *sqlxStore) selectChannels(ctx context.Context, query string, args ...any) ([]*domain.Channel, error) {
	var rows []channelRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	out := make([]*domain.Channel, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *sqlxStore) SetChannelMonitored(ctx context.Context, channelID string, monitored bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE channels SET is_monitored = ?, updated_at = ? WHERE channel_id = ?`,
		monitored, toMicros(s.now()), channelID)
	if err != nil {
		return fmt.Errorf("failed to update channel %s: %w", channelID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: channel %s", domain.ErrNotFound, channelID)
	}
	return nil
}

func (s *sqlxStore) UpdateChannelStats(ctx context.Context, channelID string, lastMessageAt time.Time, avgSentiment float64, added int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE channels
		SET last_message_at = MAX(COALESCE(last_message_at, 0), ?),
			avg_daily_sentiment = ?,
			total_messages = total_messages + ?,
			updated_at = ?
		WHERE channel_id = ?`,
		toMicros(lastMessageAt), avgSentiment, added, toMicros(s.now()), channelID)
	if err != nil {
		return fmt.Errorf("failed to update channel stats for %s: %w", channelID, err)
	}
	return nil
}
