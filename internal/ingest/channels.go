package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/teampulse/internal/domain"
)

// Channel registration outcomes.
const (
	StatusAdded            = "added"
	StatusEnabled          = "enabled"
	StatusAlreadyMonitored = "already_monitored"
	StatusError            = "error"
)

// AddResult is the outcome of registering one channel id.
type AddResult struct {
	ChannelID string          `json:"channelId"`
	Status    string          `json:"status"`
	Channel   *domain.Channel `json:"channel,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// AddChannels starts monitoring each id. Known channels are re-enabled;
// unknown ones are looked up on the platform and joined when public.
func (s *Service) AddChannels(ctx context.Context, ids []string, addedBy string) ([]AddResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one channel id is required", domain.ErrInvalidInput)
	}
	if addedBy == "" {
		addedBy = "system"
	}

	results := make([]AddResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.addChannel(ctx, id, addedBy)
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to add channel", "channel_id", id, "error", err)
			res = AddResult{ChannelID: id, Status: StatusError, Error: err.Error()}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) addChannel(ctx context.Context, id, addedBy string) (AddResult, error) {
	found, err := s.store.GetChannel(ctx, id)
	if err != nil {
		return AddResult{}, err
	}
	if existing, ok := found.Get(); ok {
		if existing.Monitored {
			return AddResult{ChannelID: id, Status: StatusAlreadyMonitored, Channel: existing}, nil
		}
		if err := s.store.SetChannelMonitored(ctx, id, true); err != nil {
			return AddResult{}, err
		}
		existing.Monitored = true
		s.log.InfoContext(ctx, "Re-enabled channel monitoring", "channel_id", id)
		return AddResult{ChannelID: id, Status: StatusEnabled, Channel: existing}, nil
	}

	info, err := s.platform.ChannelInfo(ctx, id)
	if err != nil {
		return AddResult{}, fmt.Errorf("channel not found: %w", err)
	}
	if !info.IsMember && !info.IsPrivate {
		if err := s.platform.JoinChannel(ctx, id); err != nil {
			return AddResult{}, err
		}
	}

	ch := &domain.Channel{
		ID:                id,
		Name:              info.Name,
		TeamID:            s.opts.TeamID,
		TeamName:          s.opts.TeamName,
		Monitored:         true,
		AddedBy:           addedBy,
		AddedAt:           s.now().UTC(),
		IncludeBots:       false,
		IncludeThreads:    true,
		AvgDailySentiment: 0.5,
	}
	if err := s.store.UpsertChannel(ctx, ch); err != nil {
		return AddResult{}, err
	}
	s.log.InfoContext(ctx, "Added channel", "channel_id", id, "name", ch.Name, "added_by", addedBy)
	return AddResult{ChannelID: id, Status: StatusAdded, Channel: ch}, nil
}

// RemoveChannel stops monitoring a channel. Its history is kept.
func (s *Service) RemoveChannel(ctx context.Context, id string) error {
	if err := s.store.SetChannelMonitored(ctx, id, false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to remove channel %s: %w", id, err)
	}
	s.log.InfoContext(ctx, "Disabled channel monitoring", "channel_id", id)
	return nil
}

// ListChannels returns the monitored channels.
func (s *Service) ListChannels(ctx context.Context) ([]*domain.Channel, error) {
	return s.store.ListMonitoredChannels(ctx, s.opts.TeamID)
}
