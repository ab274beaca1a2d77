package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/teampulse/internal/domain"
	"github.com/edgard/teampulse/internal/slack"
)

// HandleReaction applies a reaction change and re-scores the message. The
// read, re-score and write cycle repeats from a fresh read whenever another
// writer updated the message in between.
func (s *Service) HandleReaction(ctx context.Context, ev slack.ReactionEvent) error {
	log := s.log.With("channel_id", ev.ChannelID, "ts", ev.ItemTS, "reaction", ev.Reaction, "added", ev.Added)

	for attempt := 1; attempt <= s.opts.ReactionRetries; attempt++ {
		found, err := s.store.GetMessage(ctx, ev.ChannelID, ev.ItemTS)
		if err != nil {
			return err
		}
		msg, ok := found.Get()
		if !ok {
			log.DebugContext(ctx, "Reaction on unknown message, ignoring")
			return nil
		}

		if !s.applyReaction(msg, ev.Reaction, ev.Added) {
			return nil
		}

		res := s.scorer.Score(ctx, msg.Content, msg.ReactionCounts())
		msg.Label = res.Label
		msg.Score = res.Score
		msg.Confidence = res.Confidence
		msg.BurnoutSignals = res.BurnoutSignals

		err = s.store.UpdateMessageScore(ctx, msg)
		if errors.Is(err, domain.ErrVersionConflict) {
			log.DebugContext(ctx, "Message changed during re-score, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "Re-scored message after reaction", "sentiment", msg.Label, "score", msg.Score)
		return nil
	}
	return fmt.Errorf("failed to re-score message %s/%s after %d attempts: %w",
		ev.ChannelID, ev.ItemTS, s.opts.ReactionRetries, domain.ErrVersionConflict)
}

// applyReaction mutates msg's reactions and reports whether anything changed.
func (s *Service) applyReaction(msg *domain.ScoredMessage, emoji string, added bool) bool {
	idx := -1
	for i, r := range msg.Reactions {
		if r.Emoji == emoji {
			idx = i
			break
		}
	}

	if added {
		if idx >= 0 {
			msg.Reactions[idx].Count++
		} else {
			msg.Reactions = append(msg.Reactions, domain.Reaction{Emoji: emoji, Count: 1, Sentiment: s.emojis.WeightOrZero(emoji)})
		}
		return true
	}

	if idx < 0 {
		return false
	}
	msg.Reactions[idx].Count--
	if msg.Reactions[idx].Count <= 0 {
		msg.Reactions = append(msg.Reactions[:idx], msg.Reactions[idx+1:]...)
	}
	return true
}
