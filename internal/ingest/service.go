// Package ingest turns platform messages into stored scored messages, keeps
// reaction-driven scores current and manages the monitored channel registry.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/report"
	"github.com/edgard/teampulse/internal/sentiment"
	"github.com/edgard/teampulse/internal/slack"
)

// StatsWindow is the trailing window used for a channel's average sentiment.
const StatsWindow = 24 * time.Hour

// Platform is the chat platform the service reads from.
type Platform interface {
	ChannelHistory(ctx context.Context, channelID string, oldest time.Time, limit int) ([]slack.Message, error)
	UserInfo(ctx context.Context, userID string) (*slack.UserInfo, error)
	ChannelInfo(ctx context.Context, channelID string) (*slack.ChannelInfo, error)
	JoinChannel(ctx context.Context, channelID string) error
}

// Scorer scores message text with optional reactions.
type Scorer interface {
	Score(ctx context.Context, text string, reactions []domain.ReactionCount) sentiment.Result
}

// Store is the persistence the service needs.
type Store interface {
	SaveMessage(ctx context.Context, msg *domain.ScoredMessage) (bool, error)
	MessageExists(ctx context.Context, channelID, platformTS string) (bool, error)
	GetMessage(ctx context.Context, channelID, platformTS string) (mo.Option[*domain.ScoredMessage], error)
	UpdateMessageScore(ctx context.Context, msg *domain.ScoredMessage) error
	ListChannelMessagesSince(ctx context.Context, channelID string, since time.Time) ([]*domain.ScoredMessage, error)

	UpsertChannel(ctx context.Context, ch *domain.Channel) error
	GetChannel(ctx context.Context, channelID string) (mo.Option[*domain.Channel], error)
	ListMonitoredChannels(ctx context.Context, teamID string) ([]*domain.Channel, error)
	SetChannelMonitored(ctx context.Context, channelID string, monitored bool) error
	UpdateChannelStats(ctx context.Context, channelID string, lastMessageAt time.Time, avgSentiment float64, added int) error
}

// Options tunes ingestion.
type Options struct {
	TeamID          string
	TeamName        string
	Concurrency     int
	HistoryWindow   time.Duration
	HistoryLimit    int
	ReactionRetries int
}

// Service ingests messages and reactions.
type Service struct {
	store    Store
	platform Platform
	scorer   Scorer
	emojis   *sentiment.EmojiTable
	opts     Options
	now      func() time.Time
	log      *slog.Logger

	mu    sync.Mutex
	users map[string]string
}

func NewService(store Store, platform Platform, scorer Scorer, emojis *sentiment.EmojiTable, opts Options, logger *slog.Logger) *Service {
	if emojis == nil {
		emojis = sentiment.NewEmojiTable()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ReactionRetries < 1 {
		opts.ReactionRetries = 1
	}
	return &Service{
		store:    store,
		platform: platform,
		scorer:   scorer,
		emojis:   emojis,
		opts:     opts,
		now:      time.Now,
		log:      logger.With("component", "ingest_service"),
		users:    make(map[string]string),
	}
}

// ChannelResult summarizes one channel of a poll.
type ChannelResult struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	Found       int    `json:"messagesFound"`
	Processed   int    `json:"messagesProcessed"`
	Error       string `json:"error,omitempty"`
}

// PollResult is the outcome of PollChannels.
type PollResult struct {
	Run            *report.Run     `json:"report"`
	TotalProcessed int             `json:"totalProcessed"`
	Channels       []ChannelResult `json:"results"`
}

// PollChannels fetches recent history for every monitored channel and stores
// the messages not seen before. Only failing to list channels is an error;
// channel and message failures are recorded in the result.
func (s *Service) PollChannels(ctx context.Context) (*PollResult, error) {
	channels, err := s.store.ListMonitoredChannels(ctx, s.opts.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored channels: %w", err)
	}

	res := &PollResult{Run: report.New("ingest"), Channels: make([]ChannelResult, 0, len(channels))}
	if len(channels) == 0 {
		s.log.WarnContext(ctx, "No channels being monitored")
		res.Run.Finish()
		return res, nil
	}

	oldest := s.now().Add(-s.opts.HistoryWindow)
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			res.Run.Finish()
			return res, err
		}
		cr := s.pollChannel(ctx, res.Run, ch, oldest)
		res.TotalProcessed += cr.Processed
		res.Channels = append(res.Channels, cr)
	}

	s.log.InfoContext(ctx, "Polling completed",
		"channels", len(channels),
		"processed", res.TotalProcessed,
		"failed", res.Run.Count(report.StatusFailed))
	res.Run.Finish()
	return res, nil
}

func (s *Service) pollChannel(ctx context.Context, run *report.Run, ch *domain.Channel, oldest time.Time) ChannelResult {
	cr := ChannelResult{ChannelID: ch.ID, ChannelName: ch.Name}
	log := s.log.With("channel_id", ch.ID, "channel_name", ch.Name)

	msgs, err := s.platform.ChannelHistory(ctx, ch.ID, oldest, s.opts.HistoryLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch channel history", "error", err)
		cr.Error = err.Error()
		run.Record(report.KindChannel, ch.ID, err)
		return cr
	}
	cr.Found = len(msgs)

	var (
		processed atomic.Int64
		newest    atomic.Int64
		g         errgroup.Group
	)
	g.SetLimit(s.opts.Concurrency)

	for _, m := range msgs {
		if m.UserID == slack.SlackbotUserID || utf8.RuneCountInString(strings.TrimSpace(m.Text)) < sentiment.MinScoreableLength {
			continue
		}
		exists, err := s.store.MessageExists(ctx, ch.ID, m.TS)
		if err != nil {
			log.ErrorContext(ctx, "Failed to check message", "ts", m.TS, "error", err)
			run.Record(report.KindMessage, ch.ID+"/"+m.TS, err)
			continue
		}
		if exists {
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			msg, err := s.buildMessage(ctx, ch, m)
			if err != nil {
				log.WarnContext(ctx, "Skipping message", "ts", m.TS, "error", err)
				run.Record(report.KindMessage, ch.ID+"/"+m.TS, err)
				return nil
			}
			if msg == nil {
				return nil
			}
			inserted, err := s.store.SaveMessage(ctx, msg)
			if err != nil {
				log.ErrorContext(ctx, "Failed to store message", "ts", m.TS, "error", err)
				run.Record(report.KindMessage, ch.ID+"/"+m.TS, err)
				return nil
			}
			if inserted {
				processed.Add(1)
				maxInt64(&newest, msg.Timestamp.UnixMicro())
				log.DebugContext(ctx, "Processed message", "ts", m.TS, "sentiment", msg.Label, "score", msg.Score)
			}
			return nil
		})
	}
	_ = g.Wait()

	cr.Processed = int(processed.Load())
	if cr.Processed > 0 {
		if err := s.refreshChannelStats(ctx, ch.ID, time.UnixMicro(newest.Load()), cr.Processed); err != nil {
			log.WarnContext(ctx, "Failed to update channel stats", "error", err)
		}
	}
	run.Record(report.KindChannel, ch.ID, nil)
	log.InfoContext(ctx, "Channel polled", "found", cr.Found, "processed", cr.Processed)
	return cr
}

func maxInt64(v *atomic.Int64, candidate int64) {
	for {
		cur := v.Load()
		if candidate <= cur || v.CompareAndSwap(cur, candidate) {
			return
		}
	}
}

// buildMessage resolves the author, cleans and scores m. A nil message with
// a nil error means m is not scoreable.
func (s *Service) buildMessage(ctx context.Context, ch *domain.Channel, m slack.Message) (*domain.ScoredMessage, error) {
	cleaned := slack.CleanMessage(m.Text)
	if utf8.RuneCountInString(cleaned) < sentiment.MinScoreableLength {
		return nil, nil
	}

	at, err := slack.ParseTimestamp(m.TS)
	if err != nil {
		return nil, err
	}

	author, err := s.userName(ctx, m.UserID)
	if err != nil {
		return nil, err
	}

	reactions := s.weighReactions(m.Reactions)
	res := s.scorer.Score(ctx, cleaned, m.Reactions)

	return &domain.ScoredMessage{
		ChannelID:      ch.ID,
		ChannelName:    ch.Name,
		AuthorID:       m.UserID,
		AuthorName:     author,
		Content:        cleaned,
		PlatformTS:     m.TS,
		Timestamp:      at,
		Label:          res.Label,
		Score:          res.Score,
		Confidence:     res.Confidence,
		BurnoutSignals: res.BurnoutSignals,
		Reactions:      reactions,
		ThreadTS:       m.ThreadTS,
		IsThread:       m.ThreadTS != "",
		Metadata:       slack.Metadata(m, cleaned),
	}, nil
}

func (s *Service) weighReactions(counts []domain.ReactionCount) []domain.Reaction {
	out := make([]domain.Reaction, 0, len(counts))
	for _, r := range counts {
		if r.Count <= 0 {
			continue
		}
		out = append(out, domain.Reaction{Emoji: r.Emoji, Count: r.Count, Sentiment: s.emojis.WeightOrZero(r.Emoji)})
	}
	return out
}

// userName resolves a display name through a process-lifetime cache.
func (s *Service) userName(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	name, ok := s.users[userID]
	s.mu.Unlock()
	if ok {
		return name, nil
	}

	info, err := s.platform.UserInfo(ctx, userID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.users[userID] = info.Name
	s.mu.Unlock()
	return info.Name, nil
}

// refreshChannelStats recomputes the trailing average sentiment and adds
// added to the channel's message total.
func (s *Service) refreshChannelStats(ctx context.Context, channelID string, lastMessageAt time.Time, added int) error {
	recent, err := s.store.ListChannelMessagesSince(ctx, channelID, s.now().Add(-StatsWindow))
	if err != nil {
		return err
	}
	avg := 0.5
	if len(recent) > 0 {
		var sum float64
		for _, m := range recent {
			sum += m.Score
		}
		avg = sum / float64(len(recent))
	}
	return s.store.UpdateChannelStats(ctx, channelID, lastMessageAt, avg, added)
}

// HandleMessage ingests one message event for a monitored channel,
// honoring the channel's bot and thread settings.
func (s *Service) HandleMessage(ctx context.Context, ev slack.MessageEvent) error {
	if ev.SubType != "" {
		return nil
	}
	found, err := s.store.GetChannel(ctx, ev.ChannelID)
	if err != nil {
		return err
	}
	ch, ok := found.Get()
	if !ok || !ch.Monitored {
		return nil
	}

	m := ev.Message()
	if !ch.IncludeBots && m.BotID != "" {
		return nil
	}
	if !ch.IncludeThreads && m.IsReply() {
		return nil
	}
	if m.UserID == slack.SlackbotUserID {
		return nil
	}

	msg, err := s.buildMessage(ctx, ch, m)
	if err != nil {
		return fmt.Errorf("failed to process message %s in %s: %w", ev.TS, ev.ChannelID, err)
	}
	if msg == nil {
		return nil
	}

	inserted, err := s.store.SaveMessage(ctx, msg)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	if err := s.refreshChannelStats(ctx, ch.ID, msg.Timestamp, 1); err != nil {
		s.log.WarnContext(ctx, "Failed to update channel stats", "channel_id", ch.ID, "error", err)
	}
	s.log.InfoContext(ctx, "Processed message event",
		"channel_id", ch.ID,
		"user", msg.AuthorName,
		"sentiment", msg.Label,
		"score", msg.Score)
	return nil
}
