package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	notifyDomain "github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
	"github.com/samber/oops"
)

// Sender is the part of *bot.Bot used for notifications.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// RecipientSource lists the chats to notify.
type RecipientSource interface {
	Recipients() ([]int64, error)
}

// Notifier delivers went-live events to every subscribed chat.
type Notifier struct {
	sender     Sender
	recipients RecipientSource
	publicURL  string
	logger     *slog.Logger
}

// NewNotifier creates a notifier sending through sender.
func NewNotifier(sender Sender, recipients RecipientSource, publicURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		recipients: recipients,
		publicURL:  publicURL,
		logger:     logger.With("component", "telegram-notifier"),
	}
}

func (n *Notifier) Name() string { return "telegram" }

// Deliver sends ev to each recipient. A failed chat does not stop the others.
func (n *Notifier) Deliver(ctx context.Context, ev notifyDomain.Event) error {
	chatIDs, err := n.recipients.Recipients()
	if err != nil {
		return oops.In("telegram").With("event_id", ev.ID).Wrap(err)
	}

	text := n.message(ev)
	var failures []error
	for _, chatID := range chatIDs {
		if err := n.send(ctx, chatID, ev, text); err != nil {
			n.logger.Warn("Failed to notify chat", "chat_id", chatID, "channel_id", ev.ChannelID, "error", err)
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return oops.In("telegram").
			With("event_id", ev.ID, "failed", len(failures), "total", len(chatIDs)).
			Wrap(errors.Join(failures...))
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, chatID int64, ev notifyDomain.Event, text string) error {
	if ev.Thumbnail != "" {
		_, err := n.sender.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileString{Data: ev.Thumbnail},
			Caption: text,
		})
		if err == nil {
			return nil
		}
		n.logger.Debug("Photo rejected, falling back to text", "chat_id", chatID, "error", err)
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func (n *Notifier) message(ev notifyDomain.Event) string {
	text := "🔴 " + ev.Summary
	if ev.Title != "" {
		text += "\n" + ev.Title
	}
	if n.publicURL != "" {
		text += fmt.Sprintf("\n\n%s/api/channels/%s", n.publicURL, ev.ChannelID)
	}
	return text
}
