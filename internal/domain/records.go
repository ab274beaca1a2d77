package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// ReactionCount is a raw emoji reaction tally as reported by the chat platform.
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Reaction is a reaction tally annotated with the emoji's sentiment weight.
type Reaction struct {
	Emoji     string  `json:"emoji"`
	Count     int     `json:"count"`
	Sentiment float64 `json:"sentiment"`
}

// MessageMetadata carries descriptive attributes derived at ingestion time.
type MessageMetadata struct {
	MessageType string `json:"messageType"`
	HasLinks    bool   `json:"hasLinks"`
	HasEmojis   bool   `json:"hasEmojis"`
	WordCount   int    `json:"wordCount"`
}

// ScoredMessage is one scored chat message. It is uniquely identified by
// the pair (ChannelID, PlatformTS).
type ScoredMessage struct {
	ID             int64           `json:"id"`
	ChannelID      string          `json:"channelId"`
	ChannelName    string          `json:"channelName"`
	AuthorID       string          `json:"userId"`
	AuthorName     string          `json:"userName"`
	Content        string          `json:"content"`
	PlatformTS     string          `json:"slackTs"`
	Timestamp      time.Time       `json:"timestamp"`
	Label          Label           `json:"sentiment"`
	Score          float64         `json:"sentimentScore"`
	Confidence     float64         `json:"confidence"`
	BurnoutSignals bool            `json:"burnoutSignals"`
	Reactions      []Reaction      `json:"reactions"`
	ThreadTS       string          `json:"threadTs,omitempty"`
	IsThread       bool            `json:"isThread"`
	Metadata       MessageMetadata `json:"metadata"`
	Version        int64           `json:"version"`
}

// ReactionCounts returns the raw tallies of the message's reactions.
func (m *ScoredMessage) ReactionCounts() []ReactionCount {
	out := make([]ReactionCount, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		out = append(out, ReactionCount{Emoji: r.Emoji, Count: r.Count})
	}
	return out
}

// EmojiVolume is one entry of a daily top-emoji list.
type EmojiVolume struct {
	Emoji     string  `json:"emoji"`
	Count     int     `json:"count"`
	Sentiment float64 `json:"sentiment"`
}

// DailyAggregate summarizes one channel for one calendar day. It is uniquely
// identified by (ChannelID, Day).
type DailyAggregate struct {
	ChannelID     string        `json:"channelId"`
	ChannelName   string        `json:"channelName"`
	Day           civil.Date    `json:"date"`
	AvgSentiment  float64       `json:"avgSentiment"`
	MessageCount  int           `json:"messageCount"`
	PositiveCount int           `json:"positiveCount"`
	NeutralCount  int           `json:"neutralCount"`
	NegativeCount int           `json:"negativeCount"`
	BurnoutRisk   float64       `json:"burnoutRisk"`
	TopEmojis     []EmojiVolume `json:"topEmojis"`
	ActiveUsers   int           `json:"activeUsers"`
	Trend         Trend         `json:"sentimentTrend"`
}

// ChannelRollup is one channel's contribution to a weekly insight.
type ChannelRollup struct {
	ChannelID    string  `json:"channelId"`
	ChannelName  string  `json:"channelName"`
	AvgSentiment float64 `json:"avgSentiment"`
	MessageCount int     `json:"messageCount"`
	BurnoutRisk  float64 `json:"burnoutRisk"`
	Trend        Trend   `json:"trend"`
}

// BurnoutAlert flags a channel whose weekly burnout risk crossed the
// alerting threshold.
type BurnoutAlert struct {
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	Signals     []string  `json:"signals"`
}

type KeyMetrics struct {
	EngagementScore   float64 `json:"engagementScore"`
	ParticipationRate float64 `json:"participationRate"`
	ResponseTime      float64 `json:"responseTime"`
	PositivityRatio   float64 `json:"positivityRatio"`
}

// Narrative is the advisory text attached to a weekly insight.
type Narrative struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// WeeklyInsight summarizes one team for one seven day window. It is uniquely
// identified by (TeamID, WeekStart).
type WeeklyInsight struct {
	TeamID           string          `json:"teamId"`
	TeamName         string          `json:"teamName"`
	WeekStart        civil.Date      `json:"weekStart"`
	WeekEnd          civil.Date      `json:"weekEnd"`
	Channels         []ChannelRollup `json:"channels"`
	OverallTrend     Trend           `json:"overallTrend"`
	OverallSentiment float64         `json:"overallSentiment"`
	TotalMessages    int             `json:"totalMessages"`
	Insights         []string        `json:"insights"`
	Recommendations  []string        `json:"recommendations"`
	BurnoutAlerts    []BurnoutAlert  `json:"burnoutAlerts"`
	KeyMetrics       KeyMetrics      `json:"keyMetrics"`
}

// Channel is a monitored (or previously monitored) chat channel.
type Channel struct {
	ID                string     `json:"channelId"`
	Name              string     `json:"name"`
	TeamID            string     `json:"teamId"`
	TeamName          string     `json:"teamName"`
	Monitored         bool       `json:"isMonitored"`
	AddedBy           string     `json:"addedBy"`
	AddedAt           time.Time  `json:"addedAt"`
	LastMessageAt     *time.Time `json:"lastMessageAt,omitempty"`
	IncludeBots       bool       `json:"includeBots"`
	IncludeThreads    bool       `json:"includeThreads"`
	TotalMessages     int        `json:"totalMessages"`
	AvgDailySentiment float64    `json:"avgDailySentiment"`
}
