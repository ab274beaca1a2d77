package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"github.com/edgard/teampulse/internal/domain"
)

// Store is the persistence layer. Every method is individually atomic;
// no method spans several natural keys in one transaction.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a scored message. Inserting an existing
	// (channel, platform timestamp) pair is a no-op reported as inserted=false.
	SaveMessage(ctx context.Context, msg *domain.ScoredMessage) (inserted bool, err error)

	// MessageExists reports whether a message is already stored.
	MessageExists(ctx context.Context, channelID, platformTS string) (bool, error)

	// GetMessage looks a message up by its natural key.
	GetMessage(ctx context.Context, channelID, platformTS string) (mo.Option[*domain.ScoredMessage], error)

	// UpdateMessageScore replaces reactions and score fields if the stored
	// version still equals msg.Version, then increments msg.Version. A lost
	// race returns domain.ErrVersionConflict.
	UpdateMessageScore(ctx context.Context, msg *domain.ScoredMessage) error

	// ListMessagesBetween returns messages with start <= timestamp <= end,
	// ordered by timestamp.
	ListMessagesBetween(ctx context.Context, start, end time.Time) ([]*domain.ScoredMessage, error)

	// ListChannelMessagesSince returns one channel's messages at or after since.
	ListChannelMessagesSince(ctx context.Context, channelID string, since time.Time) ([]*domain.ScoredMessage, error)

	// UpsertDailyAggregate writes agg, fully replacing any record for the
	// same (channel, day).
	UpsertDailyAggregate(ctx context.Context, agg *domain.DailyAggregate) error

	// GetDailyAggregate looks up one (channel, day) record.
	GetDailyAggregate(ctx context.Context, channelID string, day civil.Date) (mo.Option[*domain.DailyAggregate], error)

	// ListDailyAggregatesBetween returns records with from <= day <= to,
	// ordered by day then channel id.
	ListDailyAggregatesBetween(ctx context.Context, from, to civil.Date) ([]*domain.DailyAggregate, error)

	// UpsertWeeklyInsight writes w, fully replacing any record for the same
	// (team, week start).
	UpsertWeeklyInsight(ctx context.Context, w *domain.WeeklyInsight) error

	// GetWeeklyInsight looks up one (team, week start) record.
	GetWeeklyInsight(ctx context.Context, teamID string, weekStart civil.Date) (mo.Option[*domain.WeeklyInsight], error)

	// UpsertChannel inserts or replaces a channel registration.
	UpsertChannel(ctx context.Context, ch *domain.Channel) error

	// GetChannel looks up a channel by id.
	GetChannel(ctx context.Context, channelID string) (mo.Option[*domain.Channel], error)

	// ListChannels returns all registered channels of a team, monitored or not.
	ListChannels(ctx context.Context, teamID string) ([]*domain.Channel, error)

	// ListMonitoredChannels returns the channels of a team that are being monitored.
	ListMonitoredChannels(ctx context.Context, teamID string) ([]*domain.Channel, error)

	// SetChannelMonitored toggles monitoring. Unknown ids return domain.ErrNotFound.
	SetChannelMonitored(ctx context.Context, channelID string, monitored bool) error

	// UpdateChannelStats records activity for a channel. added is the number
	// of new messages to add to the running total.
	UpdateChannelStats(ctx context.Context, channelID string, lastMessageAt time.Time, avgSentiment float64, added int) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, msg *domain.ScoredMessage) (bool, error) {
	if msg == nil {
		return false, fmt.Errorf("%w: cannot save nil message", domain.ErrInvalidInput)
	}
	if msg.ChannelID == "" || msg.PlatformTS == "" {
		return false, fmt.Errorf("%w: message must have channel id and platform timestamp", domain.ErrInvalidInput)
	}
	if msg.Timestamp.IsZero() {
		return false, fmt.Errorf("%w: message must have a non-zero timestamp", domain.ErrInvalidInput)
	}
	if msg.Version == 0 {
		msg.Version = 1
	}

	row, err := newMessageRow(msg, s.now())
	if err != nil {
		return false, err
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO messages (channel_id, channel_name, author_id, author_name, content, platform_ts, timestamp,
			sentiment_label, sentiment_score, confidence, burnout_signals, reactions, thread_ts, is_thread,
			message_type, has_links, has_emojis, word_count, version, created_at, updated_at)
		VALUES (:channel_id, :channel_name, :author_id, :author_name, :content, :platform_ts, :timestamp,
			:sentiment_label, :sentiment_score, :confidence, :burnout_signals, :reactions, :thread_ts, :is_thread,
			:message_type, :has_links, :has_emojis, :word_count, :version, :created_at, :updated_at)
		ON CONFLICT (channel_id, platform_ts) DO NOTHING`, row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert message", "channel_id", msg.ChannelID, "ts", msg.PlatformTS, "error", err)
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Message already stored", "channel_id", msg.ChannelID, "ts", msg.PlatformTS)
		return false, nil
	}

	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return true, nil
}

func (s *sqlxStore) MessageExists(ctx context.Context, channelID, platformTS string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(1) FROM messages WHERE channel_id = ? AND platform_ts = ?`, channelID, platformTS)
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return n > 0, nil
}

func (s *sqlxStore) GetMessage(ctx context.Context, channelID, platformTS string) (mo.Option[*domain.ScoredMessage], error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+messageColumns+` FROM messages WHERE channel_id = ? AND platform_ts = ?`, channelID, platformTS)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[*domain.ScoredMessage](), nil
	}
	if err != nil {
		return mo.None[*domain.ScoredMessage](), fmt.Errorf("failed to get message %s/%s: %w", channelID, platformTS, err)
	}
	msg, err := row.toDomain()
	if err != nil {
		return mo.None[*domain.ScoredMessage](), err
	}
	return mo.Some(msg), nil
}

func (s *sqlxStore) UpdateMessageScore(ctx context.Context, msg *domain.ScoredMessage) error {
	reactions, err := marshalList(msg.Reactions)
	if err != nil {
		return fmt.Errorf("failed to encode reactions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET reactions = ?, sentiment_label = ?, sentiment_score = ?, confidence = ?, burnout_signals = ?,
			version = version + 1, updated_at = ?
		WHERE channel_id = ? AND platform_ts = ? AND version = ?`,
		reactions, string(msg.Label), msg.Score, msg.Confidence, msg.BurnoutSignals,
		toMicros(s.now()), msg.ChannelID, msg.PlatformTS, msg.Version)
	if err != nil {
		return fmt.Errorf("failed to update message score: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: message %s/%s at version %d", domain.ErrVersionConflict, msg.ChannelID, msg.PlatformTS, msg.Version)
	}
	msg.Version++
	return nil
}

func (s *sqlxStore) ListMessagesBetween(ctx context.Context, start, end time.Time) ([]*domain.ScoredMessage, error) {
	return s.selectMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id`,
		toMicros(start), toMicros(end))
}

func (s *sqlxStore) ListChannelMessagesSince(ctx context.Context, channelID string, since time.Time) ([]*domain.ScoredMessage, error) {
	return s.selectMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE channel_id = ? AND timestamp >= ? ORDER BY timestamp, id`,
		channelID, toMicros(since))
}

func (s *sqlxStore) selectMessages(ctx context.Context, query string, args ...any) ([]*domain.ScoredMessage, error) {
	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to query messages", "error", err)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	out := make([]*domain.ScoredMessage, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
