package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/teampulse/internal/domain"
)

// Poster posts plain text to a chat channel.
type Poster interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

// SlackNotifier posts alerts to one Slack channel.
type SlackNotifier struct {
	poster  Poster
	channel string
}

func NewSlackNotifier(poster Poster, channel string) *SlackNotifier {
	return &SlackNotifier{poster: poster, channel: channel}
}

func (n *SlackNotifier) NotifyWeekly(ctx context.Context, insight *domain.WeeklyInsight) error {
	if err := n.poster.PostMessage(ctx, n.channel, FormatWeeklyAlert(insight)); err != nil {
		return fmt.Errorf("failed to notify slack channel %s: %w", n.channel, err)
	}
	return nil
}

// MessageSender is the part of the Telegram bot API used for alerts.
type MessageSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier sends alerts to one Telegram chat.
type TelegramNotifier struct {
	sender MessageSender
	chatID int64
}

func NewTelegramNotifier(sender MessageSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

func (n *TelegramNotifier) NotifyWeekly(ctx context.Context, insight *domain.WeeklyInsight) error {
	_, err := n.sender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: n.chatID,
		Text:   FormatWeeklyAlert(insight),
	})
	if err != nil {
		return fmt.Errorf("failed to notify telegram chat %d: %w", n.chatID, err)
	}
	return nil
}

// NewTelegramBot creates a send-only Telegram bot client.
func NewTelegramBot(token string, logger *slog.Logger) (*tgbot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	log := logger.With("component", "telegram_bot")

	b, err := tgbot.New(token)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Info("Telegram bot instance created")
	return b, nil
}
