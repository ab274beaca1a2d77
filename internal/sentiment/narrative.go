package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/llm"
)

const (
	narrativeMaxTokens   = 500
	narrativeTemperature = 0.3
)

// FallbackNarrative is used whenever the model cannot produce guidance.
func FallbackNarrative() domain.Narrative {
	return domain.Narrative{
		Insights: []string{
			"Team sentiment data collected for analysis",
			"Communication patterns indicate normal workplace activity",
			"Regular monitoring will help identify trends over time",
		},
		Recommendations: []string{
			"Continue monitoring team communication patterns",
			"Check in with team members during 1:1 meetings",
			"Maintain open channels for feedback and concerns",
		},
	}
}

type narrativeReply struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

var narrativeSchema = llm.MustSchemaFor[narrativeReply]()

// Narrator writes weekly insights and recommendations.
type Narrator struct {
	client llm.Client
	model  string
	log    *slog.Logger
}

// NewNarrator creates a narrator. A nil client always yields the fallback.
func NewNarrator(client llm.Client, model string, logger *slog.Logger) *Narrator {
	return &Narrator{
		client: client,
		model:  model,
		log:    logger.With("component", "weekly_narrator"),
	}
}

// Narrate never fails; any model error or malformed reply yields
// FallbackNarrative.
func (n *Narrator) Narrate(ctx context.Context, channels []domain.ChannelRollup) domain.Narrative {
	if n.client == nil || len(channels) == 0 {
		return FallbackNarrative()
	}

	raw, err := n.client.Complete(ctx, llm.Request{
		Model:       n.model,
		System:      narrativeSystemPrompt,
		Prompt:      buildNarrativePrompt(channels),
		MaxTokens:   narrativeMaxTokens,
		Temperature: narrativeTemperature,
		SchemaName:  "weekly_narrative",
		Schema:      narrativeSchema,
	})
	if err != nil {
		n.log.WarnContext(ctx, "Narrative generation failed, using fallback", "error", err)
		return FallbackNarrative()
	}

	narrative, err := parseNarrative(raw)
	if err != nil {
		n.log.WarnContext(ctx, "Narrative reply malformed, using fallback", "error", err)
		return FallbackNarrative()
	}
	return narrative
}

func parseNarrative(raw string) (domain.Narrative, error) {
	var reply narrativeReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return domain.Narrative{}, fmt.Errorf("%w: %v", errMalformedResult, err)
	}
	insights := nonBlank(reply.Insights)
	recs := nonBlank(reply.Recommendations)
	if len(insights) == 0 || len(recs) == 0 {
		return domain.Narrative{}, fmt.Errorf("%w: empty insights or recommendations", errMalformedResult)
	}
	return domain.Narrative{Insights: insights, Recommendations: recs}, nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
