// Package slack is the chat-platform adapter: Web API lookups, history
// fetch, message text handling and the Socket Mode event listener.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"

	"github.com/edgard/teampulse/internal/domain"
)

// SlackbotUserID is the built-in Slackbot user, whose messages are never scored.
const SlackbotUserID = "USLACKBOT"

// Message is a raw platform message. Reaction names are already normalized
// to Unicode symbols where an alias is known.
type Message struct {
	ChannelID string
	UserID    string
	BotID     string
	SubType   string
	Text      string
	TS        string
	ThreadTS  string
	Reactions []domain.ReactionCount
}

// IsReply reports whether the message is a reply inside a thread rather
// than a top-level message or a thread parent.
func (m Message) IsReply() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.TS
}

type ChannelInfo struct {
	ID         string
	Name       string
	IsMember   bool
	IsPrivate  bool
	IsArchived bool
}

type UserInfo struct {
	ID       string
	Name     string
	RealName string
}

// Client wraps the slack-go Web API client.
type Client struct {
	api *slack.Client
	log *slog.Logger
}

// NewClient creates a client for botToken. appToken is only needed for
// Socket Mode and may be empty.
func NewClient(botToken, appToken string, logger *slog.Logger) *Client {
	var opts []slack.Option
	if appToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(appToken))
	}
	return &Client{
		api: slack.New(botToken, opts...),
		log: logger.With("component", "slack_client"),
	}
}

// ChannelHistory returns up to limit messages posted at or after oldest.
func (c *Client) ChannelHistory(ctx context.Context, channelID string, oldest time.Time, limit int) ([]Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID:          channelID,
		Oldest:             FormatTimestamp(oldest),
		Limit:              limit,
		IncludeAllMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for channel %s: %w", channelID, err)
	}

	out := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, convertMessage(channelID, m.Msg))
	}
	c.log.DebugContext(ctx, "Fetched channel history", "channel_id", channelID, "count", len(out), "has_more", resp.HasMore)
	return out, nil
}

func convertMessage(channelID string, m slack.Msg) Message {
	reactions := make([]domain.ReactionCount, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		reactions = append(reactions, domain.ReactionCount{Emoji: NormalizeReaction(r.Name), Count: r.Count})
	}
	return Message{
		ChannelID: channelID,
		UserID:    m.User,
		BotID:     m.BotID,
		SubType:   m.SubType,
		Text:      m.Text,
		TS:        m.Timestamp,
		ThreadTS:  m.ThreadTimestamp,
		Reactions: reactions,
	}
}

func (c *Client) UserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	info := &UserInfo{ID: u.ID, Name: u.Name, RealName: u.RealName}
	if info.RealName == "" {
		info.RealName = u.Name
	}
	return info, nil
}

func (c *Client) ChannelInfo(ctx context.Context, channelID string) (*ChannelInfo, error) {
	ch, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	return &ChannelInfo{
		ID:         ch.ID,
		Name:       ch.Name,
		IsMember:   ch.IsMember,
		IsPrivate:  ch.IsPrivate,
		IsArchived: ch.IsArchived,
	}, nil
}

func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	if _, _, _, err := c.api.JoinConversationContext(ctx, channelID); err != nil {
		return fmt.Errorf("failed to join channel %s: %w", channelID, err)
	}
	c.log.InfoContext(ctx, "Joined channel", "channel_id", channelID)
	return nil
}

// PostMessage sends plain text to a channel.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post message to %s: %w", channelID, err)
	}
	return nil
}
