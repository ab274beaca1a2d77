package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/edgard/teampulse/internal/domain"
)

// Timestamps are stored as unix microseconds and calendar days as
// YYYY-MM-DD text so both sort and compare correctly in SQL.

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

type messageRow struct {
	ID             int64   `db:"id"`
	ChannelID      string  `db:"channel_id"`
	ChannelName    string  `db:"channel_name"`
	AuthorID       string  `db:"author_id"`
	AuthorName     string  `db:"author_name"`
	Content        string  `db:"content"`
	PlatformTS     string  `db:"platform_ts"`
	Timestamp      int64   `db:"timestamp"`
	Label          string  `db:"sentiment_label"`
	Score          float64 `db:"sentiment_score"`
	Confidence     float64 `db:"confidence"`
	BurnoutSignals bool    `db:"burnout_signals"`
	Reactions      string  `db:"reactions"`
	ThreadTS       string  `db:"thread_ts"`
	IsThread       bool    `db:"is_thread"`
	MessageType    string  `db:"message_type"`
	HasLinks       bool    `db:"has_links"`
	HasEmojis      bool    `db:"has_emojis"`
	WordCount      int     `db:"word_count"`
	Version        int64   `db:"version"`
	CreatedAt      int64   `db:"created_at"`
	UpdatedAt      int64   `db:"updated_at"`
}

const messageColumns = `id, channel_id, channel_name, author_id, author_name, content, platform_ts, timestamp,
	sentiment_label, sentiment_score, confidence, burnout_signals, reactions, thread_ts, is_thread,
	message_type, has_links, has_emojis, word_count, version, created_at, updated_at`

func newMessageRow(m *domain.ScoredMessage, now time.Time) (*messageRow, error) {
	reactions, err := marshalList(m.Reactions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reactions: %w", err)
	}
	return &messageRow{
		ID:             m.ID,
		ChannelID:      m.ChannelID,
		ChannelName:    m.ChannelName,
		AuthorID:       m.AuthorID,
		AuthorName:     m.AuthorName,
		Content:        m.Content,
		PlatformTS:     m.PlatformTS,
		Timestamp:      toMicros(m.Timestamp),
		Label:          string(m.Label),
		Score:          m.Score,
		Confidence:     m.Confidence,
		BurnoutSignals: m.BurnoutSignals,
		Reactions:      reactions,
		ThreadTS:       m.ThreadTS,
		IsThread:       m.IsThread,
		MessageType:    m.Metadata.MessageType,
		HasLinks:       m.Metadata.HasLinks,
		HasEmojis:      m.Metadata.HasEmojis,
		WordCount:      m.Metadata.WordCount,
		Version:        m.Version,
		CreatedAt:      toMicros(now),
		UpdatedAt:      toMicros(now),
	}, nil
}

func (r *messageRow) toDomain() (*domain.ScoredMessage, error) {
	var reactions []domain.Reaction
	if err := json.Unmarshal([]byte(r.Reactions), &reactions); err != nil {
		return nil, fmt.Errorf("failed to decode reactions of message %d: %w", r.ID, err)
	}
	return &domain.ScoredMessage{
		ID:             r.ID,
		ChannelID:      r.ChannelID,
		ChannelName:    r.ChannelName,
		AuthorID:       r.AuthorID,
		AuthorName:     r.AuthorName,
		Content:        r.Content,
		PlatformTS:     r.PlatformTS,
		Timestamp:      fromMicros(r.Timestamp),
		Label:          domain.Label(r.Label),
		Score:          r.Score,
		Confidence:     r.Confidence,
		BurnoutSignals: r.BurnoutSignals,
		Reactions:      reactions,
		ThreadTS:       r.ThreadTS,
		IsThread:       r.IsThread,
		Metadata: domain.MessageMetadata{
			MessageType: r.MessageType,
			HasLinks:    r.HasLinks,
			HasEmojis:   r.HasEmojis,
			WordCount:   r.WordCount,
		},
		Version: r.Version,
	}, nil
}

type dailyRow struct {
	ChannelID     string  `db:"channel_id"`
	Day           string  `db:"day"`
	ChannelName   string  `db:"channel_name"`
	AvgSentiment  float64 `db:"avg_sentiment"`
	MessageCount  int     `db:"message_count"`
	PositiveCount int     `db:"positive_count"`
	NeutralCount  int     `db:"neutral_count"`
	NegativeCount int     `db:"negative_count"`
	BurnoutRisk   float64 `db:"burnout_risk"`
	TopEmojis     string  `db:"top_emojis"`
	ActiveUsers   int     `db:"active_users"`
	Trend         string  `db:"sentiment_trend"`
	UpdatedAt     int64   `db:"updated_at"`
}

const dailyColumns = `channel_id, day, channel_name, avg_sentiment, message_count, positive_count,
	neutral_count, negative_count, burnout_risk, top_emojis, active_users, sentiment_trend, updated_at`

func newDailyRow(a *domain.DailyAggregate, now time.Time) (*dailyRow, error) {
	emojis, err := marshalList(a.TopEmojis)
	if err != nil {
		return nil, fmt.Errorf("failed to encode top emojis: %w", err)
	}
	return &dailyRow{
		ChannelID:     a.ChannelID,
		Day:           a.Day.String(),
		ChannelName:   a.ChannelName,
		AvgSentiment:  a.AvgSentiment,
		MessageCount:  a.MessageCount,
		PositiveCount: a.PositiveCount,
		NeutralCount:  a.NeutralCount,
		NegativeCount: a.NegativeCount,
		BurnoutRisk:   a.BurnoutRisk,
		TopEmojis:     emojis,
		ActiveUsers:   a.ActiveUsers,
		Trend:         string(a.Trend),
		UpdatedAt:     toMicros(now),
	}, nil
}

func (r *dailyRow) toDomain() (*domain.DailyAggregate, error) {
	day, err := civil.ParseDate(r.Day)
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregate day %q: %w", r.Day, err)
	}
	var emojis []domain.EmojiVolume
	if err := json.Unmarshal([]byte(r.TopEmojis), &emojis); err != nil {
		return nil, fmt.Errorf("failed to decode top emojis for %s/%s: %w", r.ChannelID, r.Day, err)
	}
	return &domain.DailyAggregate{
		ChannelID:     r.ChannelID,
		ChannelName:   r.ChannelName,
		Day:           day,
		AvgSentiment:  r.AvgSentiment,
		MessageCount:  r.MessageCount,
		PositiveCount: r.PositiveCount,
		NeutralCount:  r.NeutralCount,
		NegativeCount: r.NegativeCount,
		BurnoutRisk:   r.BurnoutRisk,
		TopEmojis:     emojis,
		ActiveUsers:   r.ActiveUsers,
		Trend:         domain.Trend(r.Trend),
	}, nil
}

type weeklyRow struct {
	TeamID            string  `db:"team_id"`
	WeekStart         string  `db:"week_start"`
	WeekEnd           string  `db:"week_end"`
	TeamName          string  `db:"team_name"`
	Channels          string  `db:"channels"`
	OverallTrend      string  `db:"overall_trend"`
	OverallSentiment  float64 `db:"overall_sentiment"`
	TotalMessages     int     `db:"total_messages"`
	Insights          string  `db:"insights"`
	Recommendations   string  `db:"recommendations"`
	BurnoutAlerts     string  `db:"burnout_alerts"`
	EngagementScore   float64 `db:"engagement_score"`
	ParticipationRate float64 `db:"participation_rate"`
	ResponseTime      float64 `db:"response_time"`
	PositivityRatio   float64 `db:"positivity_ratio"`
	UpdatedAt         int64   `db:"updated_at"`
}

const weeklyColumns = `team_id, week_start, week_end, team_name, channels, overall_trend, overall_sentiment,
	total_messages, insights, recommendations, burnout_alerts, engagement_score, participation_rate,
	response_time, positivity_ratio, updated_at`

func newWeeklyRow(w *domain.WeeklyInsight, now time.Time) (*weeklyRow, error) {
	row := &weeklyRow{
		TeamID:            w.TeamID,
		WeekStart:         w.WeekStart.String(),
		WeekEnd:           w.WeekEnd.String(),
		TeamName:          w.TeamName,
		OverallTrend:      string(w.OverallTrend),
		OverallSentiment:  w.OverallSentiment,
		TotalMessages:     w.TotalMessages,
		EngagementScore:   w.KeyMetrics.EngagementScore,
		ParticipationRate: w.KeyMetrics.ParticipationRate,
		ResponseTime:      w.KeyMetrics.ResponseTime,
		PositivityRatio:   w.KeyMetrics.PositivityRatio,
		UpdatedAt:         toMicros(now),
	}

	var err error
	if row.Channels, err = marshalList(w.Channels); err != nil {
		return nil, fmt.Errorf("failed to encode channels: %w", err)
	}
	if row.Insights, err = marshalList(w.Insights); err != nil {
		return nil, fmt.Errorf("failed to encode insights: %w", err)
	}
	if row.Recommendations, err = marshalList(w.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to encode recommendations: %w", err)
	}
	if row.BurnoutAlerts, err = marshalList(w.BurnoutAlerts); err != nil {
		return nil, fmt.Errorf("failed to encode burnout alerts: %w", err)
	}
	return row, nil
}

func (r *weeklyRow) toDomain() (*domain.WeeklyInsight, error) {
	start, err := civil.ParseDate(r.WeekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse week start %q: %w", r.WeekStart, err)
	}
	end, err := civil.ParseDate(r.WeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to parse week end %q: %w", r.WeekEnd, err)
	}

	w := &domain.WeeklyInsight{
		TeamID:           r.TeamID,
		TeamName:         r.TeamName,
		WeekStart:        start,
		WeekEnd:          end,
		OverallTrend:     domain.Trend(r.OverallTrend),
		OverallSentiment: r.OverallSentiment,
		TotalMessages:    r.TotalMessages,
		KeyMetrics: domain.KeyMetrics{
			EngagementScore:   r.EngagementScore,
			ParticipationRate: r.ParticipationRate,
			ResponseTime:      r.ResponseTime,
			PositivityRatio:   r.PositivityRatio,
		},
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{r.Channels, &w.Channels},
		{r.Insights, &w.Insights},
		{r.Recommendations, &w.Recommendations},
		{r.BurnoutAlerts, &w.BurnoutAlerts},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode weekly insight %s/%s: %w", r.TeamID, r.WeekStart, err)
		}
	}
	return w, nil
}

type channelRow struct {
	ID                string        `db:"channel_id"`
	Name              string        `db:"name"`
	TeamID            string        `db:"team_id"`
	TeamName          string        `db:"team_name"`
	Monitored         bool          `db:"is_monitored"`
	AddedBy           string        `db:"added_by"`
	AddedAt           int64         `db:"added_at"`
	LastMessageAt     sql.NullInt64 `db:"last_message_at"`
	IncludeBots       bool          `db:"include_bots"`
	IncludeThreads    bool          `db:"include_threads"`
	TotalMessages     int           `db:"total_messages"`
	AvgDailySentiment float64       `db:"avg_daily_sentiment"`
	UpdatedAt         int64         `db:"updated_at"`
}

const channelColumns = `channel_id, name, team_id, team_name, is_monitored, added_by, added_at,
	last_message_at, include_bots, include_threads, total_messages, avg_daily_sentiment, updated_at`

func newChannelRow(c *domain.Channel, now time.Time) *channelRow {
	row := &channelRow{
		ID:                c.ID,
		Name:              c.Name,
		TeamID:            c.TeamID,
		TeamName:          c.TeamName,
		Monitored:         c.Monitored,
		AddedBy:           c.AddedBy,
		AddedAt:           toMicros(c.AddedAt),
		IncludeBots:       c.IncludeBots,
		IncludeThreads:    c.IncludeThreads,
		TotalMessages:     c.TotalMessages,
		AvgDailySentiment: c.AvgDailySentiment,
		UpdatedAt:         toMicros(now),
	}
	if c.LastMessageAt != nil {
		row.LastMessageAt = sql.NullInt64{Int64: toMicros(*c.LastMessageAt), Valid: true}
	}
	return row
}

func (r *channelRow) toDomain() *domain.Channel {
	c := &domain.Channel{
		ID:                r.ID,
		Name:              r.Name,
		TeamID:            r.TeamID,
		TeamName:          r.TeamName,
		Monitored:         r.Monitored,
		AddedBy:           r.AddedBy,
		AddedAt:           fromMicros(r.AddedAt),
		IncludeBots:       r.IncludeBots,
		IncludeThreads:    r.IncludeThreads,
		TotalMessages:     r.TotalMessages,
		AvgDailySentiment: r.AvgDailySentiment,
	}
	if r.LastMessageAt.Valid {
		t := fromMicros(r.LastMessageAt.Int64)
		c.LastMessageAt = &t
	}
	return c
}

// marshalList encodes a slice as a JSON array, writing nil as [].
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
