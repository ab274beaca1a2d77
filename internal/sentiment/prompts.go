package sentiment

import (
	"fmt"
	"strings"

	"github.com/edgard/teampulse/internal/domain"
)

const scoringSystemPrompt = "You analyze workplace chat messages for sentiment and burnout signals. " +
	"Reply with a single JSON object and nothing else."

const scoringPromptTemplate = `Analyze this workplace Slack message for sentiment and burnout signals. Consider both text content and emoji reactions.

Message: %q
Reactions: %s

Analyze for:
1. Overall workplace sentiment (positive/neutral/negative)
2. Sentiment score (0.0-1.0, where 0.0 = very negative, 0.5 = neutral, 1.0 = very positive)
3. Confidence in analysis (0.0-1.0)
4. Burnout signals (excessive work hours mentions, stress indicators, overwhelm, frustration with workload)

Return ONLY valid JSON in this format:
{"sentiment": "positive|neutral|negative", "score": 0.5, "confidence": 0.8, "burnoutSignals": false}`

func buildScoringPrompt(text string, reactions []domain.ReactionCount) string {
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		if r.Count <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%d)", r.Emoji, r.Count))
	}
	summary := "none"
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}
	return fmt.Sprintf(scoringPromptTemplate, text, summary)
}

const narrativeSystemPrompt = "You are a workplace wellness expert writing short, actionable notes for engineering managers. " +
	"Reply with a single JSON object and nothing else."

const narrativePromptTemplate = `Analyze this weekly team sentiment data and provide actionable insights for managers.

Channel Data:
%s

Provide:
1. Key insights about team mood and engagement patterns
2. Specific, actionable recommendations for managers

Return ONLY valid JSON:
{"insights": ["insight1", "insight2", "insight3"], "recommendations": ["rec1", "rec2", "rec3"]}`

func buildNarrativePrompt(channels []domain.ChannelRollup) string {
	var b strings.Builder
	for i, ch := range channels {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %d messages, avg sentiment: %.2f, burnout risk: %.2f, trend: %s",
			ch.ChannelName, ch.MessageCount, ch.AvgSentiment, ch.BurnoutRisk, ch.Trend)
	}
	return fmt.Sprintf(narrativePromptTemplate, b.String())
}

var positiveWords = []string{
	"great", "awesome", "excellent", "good", "nice", "love", "perfect", "amazing",
	"fantastic", "wonderful", "thanks", "thank you", "appreciate", "helpful",
	"success", "win", "celebrate", "congrats", "well done",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "problem", "issue", "error", "fail",
	"failure", "broken", "bug", "stuck", "frustrating", "annoying", "annoyed",
	"stressed", "overwhelmed", "burnout", "exhausted", "tired", "overworked",
}

var burnoutPhrases = []string{
	"overtime", "late night", "weekend work", "burnout", "exhausted", "overwhelmed",
	"too much", "can't handle", "breaking point", "stressed out", "no time", "overloaded",
}
