package sentiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/llm"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScorer(client llm.Client) *Scorer {
	return NewScorer(client, NewEmojiTable(), "test-model", 0.1, discardLogger())
}

func TestScoreShortTextSkipsModel(t *testing.T) {
	client := &mockClient{}
	s := newTestScorer(client)

	for _, text := range []string{"", "  ", "ok", " a  "} {
		got := s.Score(context.Background(), text, nil)
		assert.Equal(t, domain.LabelNeutral, got.Label)
		assert.Equal(t, 0.5, got.Score)
		assert.Equal(t, 0.3, got.Confidence)
		assert.False(t, got.BurnoutSignals)
		assert.Equal(t, SourceUnscored, got.Source)
	}
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestScoreFallbackScenarios(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		reactions []domain.ReactionCount
		score     float64
		label     domain.Label
		burnout   bool
	}{
		{
			name:      "unmapped celebration emoji",
			text:      "Great work everyone! 🎉",
			reactions: []domain.ReactionCount{{Emoji: "🎉", Count: 3}},
			score:     0.6,
			label:     domain.LabelPositive,
		},
		{
			name:    "burnout phrase only",
			text:    "really frustrated, overtime again",
			score:   0.35,
			label:   domain.LabelNegative,
			burnout: true,
		},
		{
			name:  "no keywords",
			text:  "standup moved to 10am",
			score: 0.5,
			label: domain.LabelNeutral,
		},
		{
			name:      "neutral text with mapped reaction",
			text:      "standup moved to 10am",
			reactions: []domain.ReactionCount{{Emoji: "🤔", Count: 1}},
			score:     0.5*0.7 + 0.6*0.3,
			label:     domain.LabelNeutral,
		},
		{
			name:      "raw keyword total blended before clamping",
			text:      "great awesome excellent good nice love perfect amazing",
			reactions: []domain.ReactionCount{{Emoji: "👎", Count: 1}},
			score:     1.3*0.7 + 0.15*0.3,
			label:     domain.LabelPositive,
		},
		{
			name:      "negative keyword total blended before clamping",
			text:      "bad terrible awful hate problem issue",
			reactions: []domain.ReactionCount{{Emoji: "👍", Count: 1}},
			score:     -0.1*0.7 + 0.85*0.3,
			label:     domain.LabelNegative,
		},
		{
			name:    "clamped at zero",
			text:    "bad terrible awful hate problem issue, too much overtime, burnout",
			score:   0,
			label:   domain.LabelNegative,
			burnout: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("unreachable"))
			s := newTestScorer(client)

			got := s.Score(context.Background(), tt.text, tt.reactions)
			assert.InDelta(t, tt.score, got.Score, 1e-9)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, 0.4, got.Confidence)
			assert.Equal(t, tt.burnout, got.BurnoutSignals)
			assert.Equal(t, SourceHeuristic, got.Source)
		})
	}
}

func TestScoreWithoutClientUsesHeuristic(t *testing.T) {
	s := newTestScorer(nil)
	got := s.Score(context.Background(), "thanks, this is awesome", nil)
	assert.InDelta(t, 0.7, got.Score, 1e-9)
	assert.Equal(t, domain.LabelPositive, got.Label)
	assert.Equal(t, SourceHeuristic, got.Source)
}

func TestScoreModelPath(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		reactions []domain.ReactionCount
		score     float64
		label     domain.Label
		source    Source
	}{
		{
			name:   "accepted as is",
			reply:  `{"sentiment":"positive","score":0.8,"confidence":0.9,"burnoutSignals":false}`,
			score:  0.8,
			label:  domain.LabelPositive,
			source: SourceModel,
		},
		{
			name:      "strong reactions blend",
			reply:     `{"sentiment":"positive","score":0.8,"confidence":0.9,"burnoutSignals":false}`,
			reactions: []domain.ReactionCount{{Emoji: "👍", Count: 2}},
			score:     0.8*0.7 + 0.85*0.3,
			label:     domain.LabelPositive,
			source:    SourceModel,
		},
		{
			name:      "weak reactions ignored",
			reply:     `{"sentiment":"neutral","score":0.5,"confidence":0.7,"burnoutSignals":false}`,
			reactions: []domain.ReactionCount{{Emoji: "🤔", Count: 4}},
			score:     0.5,
			label:     domain.LabelNeutral,
			source:    SourceModel,
		},
		{
			name:      "label rederived after blend",
			reply:     `{"sentiment":"neutral","score":0.5,"confidence":0.7,"burnoutSignals":false}`,
			reactions: []domain.ReactionCount{{Emoji: "😢", Count: 1}},
			score:     0.5*0.7 + 0.1*0.3,
			label:     domain.LabelNegative,
			source:    SourceModel,
		},
		{
			name:   "label disagreeing with score is rederived",
			reply:  `{"sentiment":"negative","score":0.65,"confidence":0.6,"burnoutSignals":false}`,
			score:  0.65,
			label:  domain.LabelPositive,
			source: SourceModel,
		},
		{
			name:   "fenced reply accepted",
			reply:  "```json\n{\"sentiment\":\"negative\",\"score\":0.2,\"confidence\":0.8,\"burnoutSignals\":true,\"reason\":\"late night\"}\n```",
			score:  0.2,
			label:  domain.LabelNegative,
			source: SourceModel,
		},
		{
			name:   "unknown label falls back",
			reply:  `{"sentiment":"mixed","score":0.5,"confidence":0.9,"burnoutSignals":false}`,
			score:  0.5,
			label:  domain.LabelNeutral,
			source: SourceHeuristic,
		},
		{
			name:   "out of range score falls back",
			reply:  `{"sentiment":"positive","score":1.4,"confidence":0.9,"burnoutSignals":false}`,
			score:  0.5,
			label:  domain.LabelNeutral,
			source: SourceHeuristic,
		},
		{
			name:   "missing field falls back",
			reply:  `{"sentiment":"positive","score":0.9}`,
			score:  0.5,
			label:  domain.LabelNeutral,
			source: SourceHeuristic,
		},
		{
			name:   "wrong type falls back",
			reply:  `{"sentiment":"positive","score":"0.9","confidence":0.9,"burnoutSignals":false}`,
			score:  0.5,
			label:  domain.LabelNeutral,
			source: SourceHeuristic,
		},
		{
			name:   "not json falls back",
			reply:  "I think this message is fine.",
			score:  0.5,
			label:  domain.LabelNeutral,
			source: SourceHeuristic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			client.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
				return req.Model == "test-model" && req.Schema != nil
			})).Return(tt.reply, nil).Once()
			s := newTestScorer(client)

			got := s.Score(context.Background(), "deploy went out this afternoon", tt.reactions)
			assert.InDelta(t, tt.score, got.Score, 1e-9)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, domain.DeriveLabel(got.Score), got.Label)
			assert.Equal(t, tt.source, got.Source)
			client.AssertExpectations(t)
		})
	}
}

func TestParseModelReplyBurnout(t *testing.T) {
	res, err := parseModelReply(`{"sentiment":"negative","score":0.1,"confidence":0.95,"burnoutSignals":true}`)
	require.NoError(t, err)
	assert.True(t, res.BurnoutSignals)
	assert.Equal(t, 0.95, res.Confidence)
}

func TestBuildScoringPrompt(t *testing.T) {
	p := buildScoringPrompt("ship it", []domain.ReactionCount{{Emoji: "🚀", Count: 2}, {Emoji: "👍", Count: 0}})
	assert.Contains(t, p, `"ship it"`)
	assert.Contains(t, p, "🚀 (2)")
	assert.NotContains(t, p, "👍")

	assert.Contains(t, buildScoringPrompt("ship it", nil), "Reactions: none")
}
