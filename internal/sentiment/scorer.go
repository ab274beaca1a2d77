// Package sentiment scores chat messages and writes the advisory narrative
// for weekly team summaries.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/llm"
)

const (
	// MinScoreableLength is the shortest trimmed text sent for scoring.
	MinScoreableLength = 3

	textWeight          = 0.7
	emojiWeight         = 0.3
	emojiBlendThreshold = 0.2

	neutralScore        = 0.5
	unscoredConfidence  = 0.3
	heuristicConfidence = 0.4
	keywordStep         = 0.1
	burnoutStep         = 0.15

	scoringMaxTokens = 200
)

// Source records which path produced a Result.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
	SourceUnscored  Source = "unscored"
)

// Result is the outcome of scoring one message.
type Result struct {
	Label          domain.Label
	Score          float64
	Confidence     float64
	BurnoutSignals bool
	Source         Source
}

var errMalformedResult = errors.New("malformed scoring result")

// Scorer turns message text plus reactions into a sentiment result. Score
// never fails: model errors degrade to the keyword heuristic.
type Scorer struct {
	client      llm.Client
	emojis      *EmojiTable
	model       string
	temperature float32
	log         *slog.Logger
}

// NewScorer creates a scorer. A nil client scores every message with the
// keyword heuristic.
func NewScorer(client llm.Client, emojis *EmojiTable, model string, temperature float32, logger *slog.Logger) *Scorer {
	if emojis == nil {
		emojis = NewEmojiTable()
	}
	return &Scorer{
		client:      client,
		emojis:      emojis,
		model:       model,
		temperature: temperature,
		log:         logger.With("component", "sentiment_scorer"),
	}
}

// Emojis returns the table used for reaction blending.
func (s *Scorer) Emojis() *EmojiTable {
	return s.emojis
}

// Score classifies text. Reactions are optional and only adjust the score.
func (s *Scorer) Score(ctx context.Context, text string, reactions []domain.ReactionCount) Result {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinScoreableLength {
		return Result{
			Label:      domain.LabelNeutral,
			Score:      neutralScore,
			Confidence: unscoredConfidence,
			Source:     SourceUnscored,
		}
	}

	emoji := s.emojis.ReactionSentiment(reactions)

	if s.client != nil {
		res, err := s.scoreWithModel(ctx, trimmed, reactions)
		if err == nil {
			if e, ok := emoji.Get(); ok && math.Abs(e) > emojiBlendThreshold {
				res.Score = blend(res.Score, e)
			}
			res.Label = domain.DeriveLabel(res.Score)
			return res
		}
		s.log.WarnContext(ctx, "Model scoring failed, using keyword heuristic", "error", err)
	}

	res := heuristicScore(trimmed)
	if e, ok := emoji.Get(); ok {
		res.Score = blend(res.Score, e)
	}
	res.Score = domain.Clamp(res.Score, 0, 1)
	res.Label = domain.DeriveLabel(res.Score)
	return res
}

// blend mixes a text score with an emoji weight in [-1,1]. The heuristic
// score may lie outside [0,1]; the result is clamped.
func blend(score, emoji float64) float64 {
	return domain.Clamp(score*textWeight+((emoji+1)/2)*emojiWeight, 0, 1)
}

type modelSentiment struct {
	Sentiment      string  `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative"`
	Score          float64 `json:"score" jsonschema:"description=Sentiment from 0 (very negative) to 1 (very positive)"`
	Confidence     float64 `json:"confidence" jsonschema:"description=Confidence from 0 to 1"`
	BurnoutSignals bool    `json:"burnoutSignals"`
}

// modelReply mirrors modelSentiment with pointers so missing fields are
// detectable.
type modelReply struct {
	Sentiment      *string  `json:"sentiment"`
	Score          *float64 `json:"score"`
	Confidence     *float64 `json:"confidence"`
	BurnoutSignals *bool    `json:"burnoutSignals"`
}

var scoringSchema = llm.MustSchemaFor[modelSentiment]()

func (s *Scorer) scoreWithModel(ctx context.Context, text string, reactions []domain.ReactionCount) (Result, error) {
	raw, err := s.client.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      scoringSystemPrompt,
		Prompt:      buildScoringPrompt(text, reactions),
		MaxTokens:   scoringMaxTokens,
		Temperature: s.temperature,
		SchemaName:  "message_sentiment",
		Schema:      scoringSchema,
	})
	if err != nil {
		return Result{}, err
	}
	return parseModelReply(raw)
}

func parseModelReply(raw string) (Result, error) {
	var reply modelReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errMalformedResult, err)
	}
	if reply.Sentiment == nil || reply.Score == nil || reply.Confidence == nil || reply.BurnoutSignals == nil {
		return Result{}, fmt.Errorf("%w: missing field", errMalformedResult)
	}
	if !domain.Label(*reply.Sentiment).Valid() {
		return Result{}, fmt.Errorf("%w: unknown label %q", errMalformedResult, *reply.Sentiment)
	}
	if !inUnitRange(*reply.Score) || !inUnitRange(*reply.Confidence) {
		return Result{}, fmt.Errorf("%w: value out of range", errMalformedResult)
	}
	return Result{
		Label:          domain.Label(*reply.Sentiment),
		Score:          *reply.Score,
		Confidence:     *reply.Confidence,
		BurnoutSignals: *reply.BurnoutSignals,
		Source:         SourceModel,
	}, nil
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 1
}

// heuristicScore counts keyword hits in the lowercased text. Each distinct
// word or phrase counts once. The score is left unclamped so the emoji blend
// sees the raw keyword total.
func heuristicScore(text string) Result {
	lower := strings.ToLower(text)
	score := neutralScore
	burnout := false

	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += keywordStep
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= keywordStep
		}
	}
	for _, p := range burnoutPhrases {
		if strings.Contains(lower, p) {
			score -= burnoutStep
			burnout = true
		}
	}

	return Result{
		Label:          domain.DeriveLabel(domain.Clamp(score, 0, 1)),
		Score:          score,
		Confidence:     heuristicConfidence,
		BurnoutSignals: burnout,
		Source:         SourceHeuristic,
	}
}
