package slack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

type MessageEvent struct {
	ChannelID string
	UserID    string
	BotID     string
	SubType   string
	Text      string
	TS        string
	ThreadTS  string
}

// Message converts the event to the shape returned by history fetches.
func (e MessageEvent) Message() Message {
	return Message{
		ChannelID: e.ChannelID,
		UserID:    e.UserID,
		BotID:     e.BotID,
		SubType:   e.SubType,
		Text:      e.Text,
		TS:        e.TS,
		ThreadTS:  e.ThreadTS,
	}
}

// ReactionEvent is a reaction added to or removed from a message. Reaction
// is already normalized.
type ReactionEvent struct {
	Added     bool
	ChannelID string
	ItemTS    string
	Reaction  string
	UserID    string
}

// EventHandler receives the events the listener cares about.
type EventHandler interface {
	HandleMessage(ctx context.Context, ev MessageEvent) error
	HandleReaction(ctx context.Context, ev ReactionEvent) error
}

// Listener receives Events API callbacks over Socket Mode.
type Listener struct {
	socket  *socketmode.Client
	handler EventHandler
	log     *slog.Logger
}

// NewListener creates a listener. The client must have been created with an
// app-level token.
func NewListener(c *Client, handler EventHandler, logger *slog.Logger) *Listener {
	return &Listener{
		socket:  socketmode.New(c.api),
		handler: handler,
		log:     logger.With("component", "slack_listener"),
	}
}

// Run connects and dispatches events until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	go l.dispatch(ctx)
	if err := l.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("socket mode connection failed: %w", err)
	}
	return nil
}

func (l *Listener) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.socket.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				l.log.InfoContext(ctx, "Connecting to Slack Socket Mode")
			case socketmode.EventTypeConnected:
				l.log.InfoContext(ctx, "Connected to Slack Socket Mode")
			case socketmode.EventTypeConnectionError:
				l.log.WarnContext(ctx, "Slack Socket Mode connection error", "data", evt.Data)
			case socketmode.EventTypeEventsAPI:
				eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					l.log.WarnContext(ctx, "Ignoring unexpected Events API payload", "type", fmt.Sprintf("%T", evt.Data))
					continue
				}
				if evt.Request != nil {
					l.socket.Ack(*evt.Request)
				}
				if err := l.route(ctx, eventsAPI); err != nil {
					l.log.ErrorContext(ctx, "Failed to handle Slack event", "event_type", eventsAPI.InnerEvent.Type, "error", err)
				}
			}
		}
	}
}

// route forwards one callback to the handler. Other event types are ignored.
func (l *Listener) route(ctx context.Context, eventsAPI slackevents.EventsAPIEvent) error {
	if eventsAPI.Type != slackevents.CallbackEvent {
		return nil
	}

	switch ev := eventsAPI.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		return l.handler.HandleMessage(ctx, MessageEvent{
			ChannelID: ev.Channel,
			UserID:    ev.User,
			BotID:     ev.BotID,
			SubType:   ev.SubType,
			Text:      ev.Text,
			TS:        ev.TimeStamp,
			ThreadTS:  ev.ThreadTimeStamp,
		})
	case *slackevents.ReactionAddedEvent:
		return l.handler.HandleReaction(ctx, ReactionEvent{
			Added:     true,
			ChannelID: ev.Item.Channel,
			ItemTS:    ev.Item.Timestamp,
			Reaction:  NormalizeReaction(ev.Reaction),
			UserID:    ev.User,
		})
	case *slackevents.ReactionRemovedEvent:
		return l.handler.HandleReaction(ctx, ReactionEvent{
			ChannelID: ev.Item.Channel,
			ItemTS:    ev.Item.Timestamp,
			Reaction:  NormalizeReaction(ev.Reaction),
			UserID:    ev.User,
		})
	}
	return nil
}
