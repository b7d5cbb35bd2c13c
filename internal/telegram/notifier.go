// Package telegram posts complaint activity to the administrators' chat.
package telegram

import (
	"context"
	"errors"
	"log/slog"

	"civicdesk/backend/internal/localization"
	"civicdesk/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var ErrQueueFull = errors.New("telegram: notification queue full")

// Notifier реалізує events.Publisher: події ставляться в чергу, а
// writePump надсилає їх у чат адміністраторів.
type Notifier struct {
	Bot       Sender
	ChatID    int64
	Localizer *localization.Localizer
	Lang      string

	queue chan models.ComplaintEvent
}

// NewBot authorizes the bot token against the Telegram API.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	slog.Info("telegram bot authorized", "account", bot.Self.UserName)
	return bot, nil
}

func NewNotifier(bot Sender, chatID int64, l *localization.Localizer, lang string) *Notifier {
	return &Notifier{
		Bot:       bot,
		ChatID:    chatID,
		Localizer: l,
		Lang:      lang,
		queue:     make(chan models.ComplaintEvent, 100),
	}
}

// Publish never blocks on the Telegram API.
func (n *Notifier) Publish(_ context.Context, ev models.ComplaintEvent) error {
	if n.Text(ev) == "" {
		return nil
	}
	select {
	case n.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (n *Notifier) Close() error { return nil }

// Run sends queued notifications until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.send(ev)
		}
	}
}

func (n *Notifier) send(ev models.ComplaintEvent) {
	text := n.Text(ev)
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(n.ChatID, text)
	msg.DisableNotification = ev.Type != models.EventComplaintCreated
	if _, err := n.Bot.Send(msg); err != nil {
		slog.Error("telegram send failed", "chat_id", n.ChatID, "complaint_id", ev.ComplaintID, "err", err)
	}
}

// Text renders the notification for ev, or "" for event types that are not
// posted to the chat.
func (n *Notifier) Text(ev models.ComplaintEvent) string {
	args := map[string]string{
		"title":    ev.Title,
		"category": ev.Category,
		"from":     n.Localizer.GetString(n.Lang, "status."+string(ev.PrevStatus)),
		"to":       n.Localizer.GetString(n.Lang, "status."+string(ev.Status)),
		"name":     ev.Note,
	}
	switch ev.Type {
	case models.EventComplaintCreated:
		return "🆕 " + n.Localizer.Format(n.Lang, "notify.created", args)
	case models.EventComplaintStatus:
		if ev.PrevStatus == ev.Status {
			return ""
		}
		return "🔄 " + n.Localizer.Format(n.Lang, "notify.status_changed", args)
	case models.EventComplaintAssigned:
		return "📌 " + ev.Title + ": " + ev.Note
	default:
		return ""
	}
}
