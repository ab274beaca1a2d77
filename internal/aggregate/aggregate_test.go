package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edgard/teampulse/internal/database"
	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/report"
)

// Monday.
var weekStart = civil.Date{Year: 2024, Month: time.March, Day: 4}

type mockNarrator struct {
	mock.Mock
}

func (m *mockNarrator) Narrate(ctx context.Context, channels []domain.ChannelRollup) domain.Narrative {
	args := m.Called(ctx, channels)
	return args.Get(0).(domain.Narrative)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyWeekly(ctx context.Context, insight *domain.WeeklyInsight) error {
	return m.Called(ctx, insight).Error(0)
}

var testNarrative = domain.Narrative{Insights: []string{"steady"}, Recommendations: []string{"keep going"}}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "aggregate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, discardLogger())
}

var tsSeq int

func seedMessage(t *testing.T, store database.Store, channel, author string, at time.Time, score float64, burnout bool, reactions ...domain.Reaction) {
	t.Helper()
	tsSeq++
	_, err := store.SaveMessage(context.Background(), &domain.ScoredMessage{
		ChannelID:      channel,
		ChannelName:    "name-" + channel,
		AuthorID:       author,
		AuthorName:     author,
		Content:        "message",
		PlatformTS:     fmt.Sprintf("%d.%06d", at.Unix(), tsSeq),
		Timestamp:      at,
		Label:          domain.DeriveLabel(score),
		Score:          score,
		Confidence:     0.9,
		BurnoutSignals: burnout,
		Reactions:      reactions,
	})
	require.NoError(t, err)
}

func seedDaily(t *testing.T, store database.Store, channel string, day civil.Date, avg, risk float64, count int) {
	t.Helper()
	require.NoError(t, store.UpsertDailyAggregate(context.Background(), &domain.DailyAggregate{
		ChannelID:    channel,
		ChannelName:  "name-" + channel,
		Day:          day,
		AvgSentiment: avg,
		MessageCount: count,
		BurnoutRisk:  risk,
		TopEmojis:    []domain.EmojiVolume{},
		Trend:        domain.TrendStable,
	}))
}

func at(day civil.Date, hour int) time.Time {
	return day.In(time.UTC).Add(time.Duration(hour) * time.Hour)
}

func TestBuildDailyAggregates(t *testing.T) {
	up := domain.Reaction{Emoji: "👍", Count: 2, Sentiment: 0.7}
	msgs := []*domain.ScoredMessage{
		{ChannelID: "C2", ChannelName: "ops", AuthorID: "U9", Score: 0.5, Label: domain.LabelNeutral},
		{ChannelID: "C1", ChannelName: "eng", AuthorID: "alice", Score: 0.8, Label: domain.LabelPositive,
			Reactions: []domain.Reaction{up, {Emoji: "🔥", Count: 1, Sentiment: 0.7}}},
		{ChannelID: "C1", ChannelName: "eng", AuthorID: "bob", Score: 0.2, Label: domain.LabelNegative, BurnoutSignals: true,
			Reactions: []domain.Reaction{{Emoji: "👍", Count: 1, Sentiment: 0.1}, {Emoji: "😢", Count: 3, Sentiment: -0.8}}},
		{ChannelID: "C1", ChannelName: "eng", AuthorID: "alice", Score: 0.5, Label: domain.LabelNeutral},
	}

	aggs := BuildDailyAggregates(weekStart, msgs)
	require.Len(t, aggs, 2)
	assert.Equal(t, "C1", aggs[0].ChannelID)
	assert.Equal(t, "C2", aggs[1].ChannelID)

	c1 := aggs[0]
	assert.Equal(t, "eng", c1.ChannelName)
	assert.Equal(t, weekStart, c1.Day)
	assert.Equal(t, 3, c1.MessageCount)
	assert.InDelta(t, 0.5, c1.AvgSentiment, 1e-9)
	assert.Equal(t, 1, c1.PositiveCount)
	assert.Equal(t, 1, c1.NeutralCount)
	assert.Equal(t, 1, c1.NegativeCount)
	assert.InDelta(t, 1.0/3, c1.BurnoutRisk, 1e-9)
	assert.Equal(t, 2, c1.ActiveUsers)
	assert.Equal(t, []domain.EmojiVolume{
		{Emoji: "👍", Count: 3, Sentiment: 0.7},
		{Emoji: "😢", Count: 3, Sentiment: -0.8},
		{Emoji: "🔥", Count: 1, Sentiment: 0.7},
	}, c1.TopEmojis)
}

func TestBuildDailyAggregatesTopEmojiLimit(t *testing.T) {
	var reactions []domain.Reaction
	for i := 0; i < 12; i++ {
		reactions = append(reactions, domain.Reaction{Emoji: fmt.Sprintf("e%02d", i), Count: i + 1})
	}
	aggs := BuildDailyAggregates(weekStart, []*domain.ScoredMessage{{ChannelID: "C1", AuthorID: "U1", Reactions: reactions}})
	require.Len(t, aggs, 1)
	top := aggs[0].TopEmojis
	require.Len(t, top, TopEmojiLimit)
	assert.Equal(t, "e11", top[0].Emoji)
	assert.Equal(t, "e02", top[9].Emoji)
}

func TestAggregateDayTrendAndIdempotence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	agg := NewDailyAggregator(store, time.UTC, discardLogger())

	prev := weekStart.AddDays(-1)
	seedMessage(t, store, "C1", "alice", at(prev, 10), 0.5, false)
	seedMessage(t, store, "C1", "alice", at(weekStart, 9), 0.6, false)
	seedMessage(t, store, "C1", "bob", at(weekStart, 15), 0.7, true, domain.Reaction{Emoji: "👍", Count: 1, Sentiment: 0.7})
	seedMessage(t, store, "C2", "carol", at(weekStart, 11), 0.3, false)

	_, err := agg.AggregateDay(ctx, prev)
	require.NoError(t, err)

	run, err := agg.AggregateDay(ctx, weekStart)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Count(report.StatusOK))
	require.NoError(t, run.Err())

	first, err := store.GetDailyAggregate(ctx, "C1", weekStart)
	require.NoError(t, err)
	c1 := first.MustGet()
	assert.Equal(t, 2, c1.MessageCount)
	assert.InDelta(t, 0.65, c1.AvgSentiment, 1e-9)
	assert.Equal(t, 0.5, c1.BurnoutRisk)
	assert.Equal(t, domain.TrendImproving, c1.Trend)

	c2, err := store.GetDailyAggregate(ctx, "C2", weekStart)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendStable, c2.MustGet().Trend, "no prior day means stable")

	_, err = agg.AggregateDay(ctx, weekStart)
	require.NoError(t, err)
	second, err := store.GetDailyAggregate(ctx, "C1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, c1, second.MustGet(), "re-running a day must overwrite, never double count")
}

func TestAggregateDayEmpty(t *testing.T) {
	store := newTestStore(t)
	agg := NewDailyAggregator(store, time.UTC, discardLogger())

	run, err := agg.AggregateDay(context.Background(), weekStart)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Count(report.StatusSkipped))
}

func TestAggregateDayUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ctx := context.Background()
	store := newTestStore(t)
	agg := NewDailyAggregator(store, loc, discardLogger())

	// 03:00 UTC on the 5th is still the 4th in New York.
	seedMessage(t, store, "C1", "alice", at(weekStart.AddDays(1), 3), 0.9, false)

	_, err = agg.AggregateDay(ctx, weekStart)
	require.NoError(t, err)
	got, err := store.GetDailyAggregate(ctx, "C1", weekStart)
	require.NoError(t, err)
	assert.True(t, got.IsPresent())
}

type failingDailyStore struct {
	DailyStore
}

func (failingDailyStore) ListMessagesBetween(context.Context, time.Time, time.Time) ([]*domain.ScoredMessage, error) {
	return nil, errors.New("database is locked")
}

func TestAggregateDayStorageFailure(t *testing.T) {
	agg := NewDailyAggregator(failingDailyStore{}, time.UTC, discardLogger())
	_, err := agg.AggregateDay(context.Background(), weekStart)
	assert.ErrorContains(t, err, "database is locked")
}

func TestHalfSplitTrend(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   domain.Trend
	}{
		{"empty", nil, domain.TrendStable},
		{"single day", []float64{0.9}, domain.TrendStable},
		{"rising odd length", []float64{0.4, 0.5, 0.6, 0.7, 0.8}, domain.TrendImproving},
		{"falling", []float64{0.8, 0.7, 0.4, 0.3}, domain.TrendDeclining},
		{"flat within band", []float64{0.5, 0.52, 0.54}, domain.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HalfSplitTrend(tt.scores))
		})
	}
}

func TestTeamTrend(t *testing.T) {
	r := func(tr domain.Trend) domain.ChannelRollup { return domain.ChannelRollup{Trend: tr} }
	assert.Equal(t, domain.TrendImproving, TeamTrend([]domain.ChannelRollup{r(domain.TrendImproving), r(domain.TrendStable)}))
	assert.Equal(t, domain.TrendDeclining, TeamTrend([]domain.ChannelRollup{r(domain.TrendDeclining), r(domain.TrendDeclining), r(domain.TrendImproving)}))
	assert.Equal(t, domain.TrendStable, TeamTrend([]domain.ChannelRollup{r(domain.TrendDeclining), r(domain.TrendImproving)}))
	assert.Equal(t, domain.TrendStable, TeamTrend(nil))
}

func TestBurnoutAlertBoundaries(t *testing.T) {
	rollups := []domain.ChannelRollup{
		{ChannelID: "A", BurnoutRisk: 0.30, AvgSentiment: 0.5},
		{ChannelID: "B", BurnoutRisk: 0.31, AvgSentiment: 0.5},
		{ChannelID: "C", BurnoutRisk: 0.51, AvgSentiment: 0.35},
		{ChannelID: "D", BurnoutRisk: 0.71, AvgSentiment: 0.5, Trend: domain.TrendDeclining},
	}

	alerts := BurnoutAlerts(rollups)
	require.Len(t, alerts, 3)

	assert.Equal(t, "B", alerts[0].ChannelID)
	assert.Equal(t, domain.RiskLow, alerts[0].RiskLevel)
	assert.Equal(t, []string{"Burnout risk: 31.0%"}, alerts[0].Signals)

	assert.Equal(t, domain.RiskMedium, alerts[1].RiskLevel)
	assert.Equal(t, []string{"Burnout risk: 51.0%", "Low sentiment detected"}, alerts[1].Signals)

	assert.Equal(t, domain.RiskHigh, alerts[2].RiskLevel)
	assert.Equal(t, []string{"Burnout risk: 71.0%", "Declining sentiment trend"}, alerts[2].Signals)
}

func TestBurnoutAlertsFromDailyMeans(t *testing.T) {
	day := func(channel string, risk float64) *domain.DailyAggregate {
		return &domain.DailyAggregate{ChannelID: channel, ChannelName: channel, MessageCount: 5, AvgSentiment: 0.5, BurnoutRisk: risk}
	}
	daily := []*domain.DailyAggregate{
		// Float mean is 0.30000000000000004.
		day("exact-threshold", 0.2), day("exact-threshold", 0.4), day("exact-threshold", 0.1), day("exact-threshold", 0.5),
		// Float mean is 0.7000000000000001.
		day("exact-high", 0.3), day("exact-high", 0.9), day("exact-high", 0.9),
	}

	rollups := BuildRollups(daily)
	require.Len(t, rollups, 2)
	assert.Equal(t, 0.3, rollups[0].BurnoutRisk)
	assert.Equal(t, 0.7, rollups[1].BurnoutRisk)

	alerts := BurnoutAlerts(rollups)
	require.Len(t, alerts, 1)
	assert.Equal(t, "exact-high", alerts[0].ChannelID)
	assert.Equal(t, domain.RiskMedium, alerts[0].RiskLevel)
	assert.Equal(t, []string{"Burnout risk: 70.0%"}, alerts[0].Signals)

	unsettled := []domain.ChannelRollup{{ChannelID: "raw", BurnoutRisk: mean([]float64{0.2, 0.4, 0.1, 0.5}), AvgSentiment: 0.5}}
	assert.Empty(t, BurnoutAlerts(unsettled))
}

func TestHalfSplitTrendOnBandEdge(t *testing.T) {
	assert.Equal(t, domain.TrendStable, HalfSplitTrend([]float64{0.50, 0.55}))
	assert.Equal(t, domain.TrendImproving, HalfSplitTrend([]float64{0.50, 0.58}))
	assert.Equal(t, domain.TrendDeclining, HalfSplitTrend([]float64{0.50, 0.44}))
	assert.Equal(t, domain.TrendStable, HalfSplitTrend([]float64{0.50, 0.52}))
}

func TestGenerateWeek(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedDaily(t, store, "C1", weekStart, 0.4, 0.2, 10)
	seedDaily(t, store, "C1", weekStart.AddDays(3), 0.6, 0.4, 20)
	seedDaily(t, store, "C2", weekStart.AddDays(1), 0.3, 0.8, 20)
	// Outside the window on both sides.
	seedDaily(t, store, "C1", weekStart.AddDays(-1), 0.1, 1, 99)
	seedDaily(t, store, "C1", weekStart.AddDays(7), 0.1, 1, 99)

	narrator := &mockNarrator{}
	narrator.On("Narrate", mock.Anything, mock.Anything).Return(testNarrative)
	notifier := &mockNotifier{}
	notifier.On("NotifyWeekly", mock.Anything, mock.Anything).Return(errors.New("slack down"))

	w := NewWeeklyAggregator(store, narrator, notifier, Team{ID: "T1", Name: "Platform"}, discardLogger())
	insight, err := w.GenerateWeek(ctx, weekStart)
	require.NoError(t, err, "notification failures must not fail the run")
	require.NotNil(t, insight)

	assert.Equal(t, weekStart.AddDays(6), insight.WeekEnd)
	require.Len(t, insight.Channels, 2)
	c1, c2 := insight.Channels[0], insight.Channels[1]
	assert.Equal(t, "C1", c1.ChannelID)
	assert.Equal(t, 30, c1.MessageCount)
	assert.InDelta(t, 0.5, c1.AvgSentiment, 1e-9)
	assert.InDelta(t, 0.3, c1.BurnoutRisk, 1e-9)
	assert.Equal(t, domain.TrendImproving, c1.Trend)
	assert.Equal(t, domain.TrendStable, c2.Trend)

	assert.Equal(t, domain.TrendImproving, insight.OverallTrend)
	assert.Equal(t, 50, insight.TotalMessages)
	assert.InDelta(t, 0.4, insight.OverallSentiment, 1e-9)
	assert.InDelta(t, 0.5, insight.KeyMetrics.EngagementScore, 1e-9)
	assert.Equal(t, 1.0, insight.KeyMetrics.ParticipationRate)
	assert.Equal(t, 2.0, insight.KeyMetrics.ResponseTime)
	assert.InDelta(t, 0.4, insight.KeyMetrics.PositivityRatio, 1e-9)
	assert.Equal(t, testNarrative.Insights, insight.Insights)

	require.Len(t, insight.BurnoutAlerts, 1)
	assert.Equal(t, "C2", insight.BurnoutAlerts[0].ChannelID)
	assert.Equal(t, domain.RiskHigh, insight.BurnoutAlerts[0].RiskLevel)

	stored, err := store.GetWeeklyInsight(ctx, "T1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, insight, stored.MustGet())

	notifier.AssertNumberOfCalls(t, "NotifyWeekly", 1)
}

func TestGenerateWeekEngagementCapped(t *testing.T) {
	store := newTestStore(t)
	seedDaily(t, store, "C1", weekStart, 0.6, 0, 80)

	narrator := &mockNarrator{}
	narrator.On("Narrate", mock.Anything, mock.Anything).Return(testNarrative)
	notifier := &mockNotifier{}

	w := NewWeeklyAggregator(store, narrator, notifier, Team{ID: "T1", Name: "Platform"}, discardLogger())
	insight, err := w.GenerateWeek(context.Background(), weekStart)
	require.NoError(t, err)
	assert.Equal(t, 1.0, insight.KeyMetrics.EngagementScore)
	assert.Empty(t, insight.BurnoutAlerts)
	notifier.AssertNotCalled(t, "NotifyWeekly", mock.Anything, mock.Anything)
}

func TestGenerateWeekEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	narrator := &mockNarrator{}

	w := NewWeeklyAggregator(store, narrator, nil, Team{ID: "T1", Name: "Platform"}, discardLogger())
	insight, err := w.GenerateWeek(ctx, weekStart)
	require.NoError(t, err)
	assert.Nil(t, insight)

	stored, err := store.GetWeeklyInsight(ctx, "T1", weekStart)
	require.NoError(t, err)
	assert.True(t, stored.IsAbsent())
	narrator.AssertNotCalled(t, "Narrate", mock.Anything, mock.Anything)
}

func TestWeekStartOf(t *testing.T) {
	for i := 0; i < 7; i++ {
		assert.Equal(t, weekStart, WeekStartOf(weekStart.AddDays(i)))
	}
	assert.Equal(t, weekStart.AddDays(-7), WeekStartOf(weekStart.AddDays(-1)))
}

func newTestPipeline(t *testing.T, store database.Store, now time.Time) *Pipeline {
	t.Helper()
	narrator := &mockNarrator{}
	narrator.On("Narrate", mock.Anything, mock.Anything).Return(testNarrative)
	daily := NewDailyAggregator(store, time.UTC, discardLogger())
	weekly := NewWeeklyAggregator(store, narrator, nil, Team{ID: "T1", Name: "Platform"}, discardLogger())
	return NewPipeline(daily, weekly, time.UTC, discardLogger(), WithClock(func() time.Time { return now }))
}

func TestBackfillValidation(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), at(weekStart, 12))
	for _, days := range []int{0, -1, 31} {
		_, err := p.Backfill(context.Background(), days)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "days=%d", days)
	}
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	today := weekStart.AddDays(2)
	p := newTestPipeline(t, store, at(today, 20))

	for i := 0; i < 4; i++ {
		seedMessage(t, store, "C1", "alice", at(today.AddDays(-i), 9), 0.5+float64(i)*0.1, false)
	}

	run, err := p.Backfill(ctx, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := store.GetDailyAggregate(ctx, "C1", today.AddDays(-i))
		require.NoError(t, err)
		assert.True(t, got.IsPresent(), "day -%d", i)
	}
	outside, err := store.GetDailyAggregate(ctx, "C1", today.AddDays(-3))
	require.NoError(t, err)
	assert.True(t, outside.IsAbsent())

	// Oldest first: the first channel unit belongs to the oldest day.
	require.NotEmpty(t, run.Units)
	assert.Equal(t, "C1@"+today.AddDays(-2).String(), run.Units[0].Key)

	insight, err := store.GetWeeklyInsight(ctx, "T1", weekStart)
	require.NoError(t, err)
	assert.True(t, insight.IsPresent())
}

func TestBackfillAbortsOnStorageFailure(t *testing.T) {
	narrator := &mockNarrator{}
	daily := NewDailyAggregator(failingDailyStore{}, time.UTC, discardLogger())
	weekly := NewWeeklyAggregator(newTestStore(t), narrator, nil, Team{ID: "T1"}, discardLogger())
	p := NewPipeline(daily, weekly, time.UTC, discardLogger(), WithClock(func() time.Time { return at(weekStart, 1) }))

	run, err := p.Backfill(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, 1, run.Count(report.StatusFailed))
	narrator.AssertNotCalled(t, "Narrate", mock.Anything, mock.Anything)
}

func TestRunScheduledDailyOnWeekStart(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p := newTestPipeline(t, store, at(weekStart, 23))

	prevWeek := weekStart.AddDays(-7)
	seedDaily(t, store, "C1", prevWeek.AddDays(2), 0.6, 0, 12)
	seedMessage(t, store, "C1", "alice", at(weekStart, 9), 0.7, false)

	_, err := p.RunScheduledDaily(ctx)
	require.NoError(t, err)

	today, err := store.GetDailyAggregate(ctx, "C1", weekStart)
	require.NoError(t, err)
	assert.True(t, today.IsPresent())

	last, err := store.GetWeeklyInsight(ctx, "T1", prevWeek)
	require.NoError(t, err)
	assert.True(t, last.IsPresent(), "monday run closes the previous week")
}

func TestRunScheduledDailyMidweek(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p := newTestPipeline(t, store, at(weekStart.AddDays(3), 23))

	seedDaily(t, store, "C1", weekStart.AddDays(-5), 0.6, 0, 12)

	_, err := p.RunScheduledDaily(ctx)
	require.NoError(t, err)

	last, err := store.GetWeeklyInsight(ctx, "T1", weekStart.AddDays(-7))
	require.NoError(t, err)
	assert.True(t, last.IsAbsent())
}

func TestRunDailyAndWeeklyDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p := newTestPipeline(t, store, at(weekStart.AddDays(4), 12))

	seedMessage(t, store, "C1", "alice", at(weekStart.AddDays(1), 9), 0.7, false)

	explicit := mo.Some(weekStart.AddDays(1))
	_, err := p.RunDaily(ctx, explicit)
	require.NoError(t, err)

	run, err := p.RunWeekly(ctx, mo.None[civil.Date]())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Count(report.StatusOK))

	got, err := store.GetWeeklyInsight(ctx, "T1", weekStart)
	require.NoError(t, err)
	assert.True(t, got.IsPresent())

	run, err = p.RunWeekly(ctx, mo.Some(weekStart.AddDays(-7)))
	require.NoError(t, err)
	assert.Equal(t, 1, run.Count(report.StatusSkipped))
}
