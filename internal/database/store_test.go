package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/teampulse/internal/domain"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil)
}

func sampleMessage(channel, ts string, at time.Time) *domain.ScoredMessage {
	return &domain.ScoredMessage{
		ChannelID:   channel,
		ChannelName: "general",
		AuthorID:    "U1",
		AuthorName:  "alice",
		Content:     "shipping today",
		PlatformTS:  ts,
		Timestamp:   at,
		Label:       domain.LabelPositive,
		Score:       0.7,
		Confidence:  0.9,
		Reactions:   []domain.Reaction{{Emoji: "👍", Count: 2, Sentiment: 0.7}},
		Metadata:    domain.MessageMetadata{MessageType: "message", WordCount: 2},
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	CloseDB(db)

	db, err = NewDB(path)
	require.NoError(t, err)
	CloseDB(db)
}

func TestSaveMessageDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	inserted, err := store.SaveMessage(ctx, sampleMessage("C1", "1709546400.000100", at))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.SaveMessage(ctx, sampleMessage("C1", "1709546400.000100", at))
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = store.SaveMessage(ctx, sampleMessage("C2", "1709546400.000100", at))
	require.NoError(t, err)
	assert.True(t, inserted, "same ts in another channel is a different message")

	exists, err := store.MessageExists(ctx, "C1", "1709546400.000100")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.GetMessage(ctx, "C1", "1709546400.000100")
	require.NoError(t, err)
	msg, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, at, msg.Timestamp)
	assert.Equal(t, []domain.Reaction{{Emoji: "👍", Count: 2, Sentiment: 0.7}}, msg.Reactions)
	assert.Equal(t, int64(1), msg.Version)

	missing, err := store.GetMessage(ctx, "C1", "nope")
	require.NoError(t, err)
	assert.True(t, missing.IsAbsent())
}

func TestSaveMessageValidation(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SaveMessage(context.Background(), &domain.ScoredMessage{ChannelID: "C1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateMessageScoreCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	_, err := store.SaveMessage(ctx, sampleMessage("C1", "1.1", at))
	require.NoError(t, err)

	first, _ := store.GetMessage(ctx, "C1", "1.1")
	second, _ := store.GetMessage(ctx, "C1", "1.1")
	a, b := first.MustGet(), second.MustGet()

	a.Reactions = append(a.Reactions, domain.Reaction{Emoji: "🔥", Count: 1, Sentiment: 0.7})
	a.Score = 0.8
	require.NoError(t, store.UpdateMessageScore(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Reactions = nil
	err = store.UpdateMessageScore(ctx, b)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	stored, _ := store.GetMessage(ctx, "C1", "1.1")
	assert.Len(t, stored.MustGet().Reactions, 2)
	assert.Equal(t, 0.8, stored.MustGet().Score)
}

func TestListMessagesBetweenIsClosedInterval(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Microsecond)

	for i, at := range []time.Time{start.Add(-time.Microsecond), start, start.Add(time.Hour), end, end.Add(time.Microsecond)} {
		_, err := store.SaveMessage(ctx, sampleMessage("C1", string(rune('a'+i)), at))
		require.NoError(t, err)
	}

	msgs, err := store.ListMessagesBetween(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "b", msgs[0].PlatformTS)
	assert.Equal(t, "d", msgs[2].PlatformTS)
}

func TestDailyAggregateUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	day := civil.Date{Year: 2024, Month: 3, Day: 4}

	agg := &domain.DailyAggregate{
		ChannelID: "C1", ChannelName: "general", Day: day,
		AvgSentiment: 0.6, MessageCount: 3, PositiveCount: 2, NeutralCount: 1,
		TopEmojis:   []domain.EmojiVolume{{Emoji: "👍", Count: 3, Sentiment: 0.7}},
		ActiveUsers: 2, Trend: domain.TrendStable,
	}
	require.NoError(t, store.UpsertDailyAggregate(ctx, agg))

	replacement := *agg
	replacement.MessageCount = 1
	replacement.TopEmojis = []domain.EmojiVolume{}
	replacement.Trend = domain.TrendImproving
	require.NoError(t, store.UpsertDailyAggregate(ctx, &replacement))

	got, err := store.GetDailyAggregate(ctx, "C1", day)
	require.NoError(t, err)
	assert.Equal(t, &replacement, got.MustGet())

	list, err := store.ListDailyAggregatesBetween(ctx, day.AddDays(-1), day.AddDays(1))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	absent, err := store.GetDailyAggregate(ctx, "C1", day.AddDays(1))
	require.NoError(t, err)
	assert.True(t, absent.IsAbsent())
}

func TestWeeklyInsightRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	start := civil.Date{Year: 2024, Month: 3, Day: 4}

	w := &domain.WeeklyInsight{
		TeamID: "T1", TeamName: "Platform", WeekStart: start, WeekEnd: start.AddDays(6),
		Channels:     []domain.ChannelRollup{{ChannelID: "C1", ChannelName: "general", AvgSentiment: 0.5, MessageCount: 4, Trend: domain.TrendStable}},
		OverallTrend: domain.TrendStable, OverallSentiment: 0.5, TotalMessages: 4,
		Insights: []string{"a"}, Recommendations: []string{"b"},
		BurnoutAlerts: []domain.BurnoutAlert{{ChannelID: "C1", ChannelName: "general", RiskLevel: domain.RiskMedium, Signals: []string{"Burnout risk: 60.0%"}}},
		KeyMetrics:    domain.KeyMetrics{EngagementScore: 0.08, ParticipationRate: 1, ResponseTime: 2, PositivityRatio: 0.5},
	}
	require.NoError(t, store.UpsertWeeklyInsight(ctx, w))
	require.NoError(t, store.UpsertWeeklyInsight(ctx, w))

	got, err := store.GetWeeklyInsight(ctx, "T1", start)
	require.NoError(t, err)
	assert.Equal(t, w, got.MustGet())
}

func TestChannels(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpsertChannel(ctx, &domain.Channel{ID: "C2", Name: "random", TeamID: "T1", TeamName: "Platform", Monitored: true, IncludeThreads: true}))
	require.NoError(t, store.UpsertChannel(ctx, &domain.Channel{ID: "C1", Name: "eng", TeamID: "T1", TeamName: "Platform", Monitored: true}))

	monitored, err := store.ListMonitoredChannels(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, monitored, 2)
	assert.Equal(t, "eng", monitored[0].Name)

	require.NoError(t, store.SetChannelMonitored(ctx, "C1", false))
	monitored, err = store.ListMonitoredChannels(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, monitored, 1)

	all, err := store.ListChannels(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, store.SetChannelMonitored(ctx, "C9", true), domain.ErrNotFound)

	last := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateChannelStats(ctx, "C2", last, 0.66, 3))
	require.NoError(t, store.UpdateChannelStats(ctx, "C2", last.Add(-time.Hour), 0.6, 1))

	ch, err := store.GetChannel(ctx, "C2")
	require.NoError(t, err)
	got := ch.MustGet()
	assert.Equal(t, 4, got.TotalMessages)
	assert.Equal(t, 0.6, got.AvgDailySentiment)
	require.NotNil(t, got.LastMessageAt)
	assert.Equal(t, last, *got.LastMessageAt)
	assert.True(t, got.IncludeThreads)
}

func TestRunSQLMaintenance(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.RunSQLMaintenance(ctx), context.Canceled)
}
