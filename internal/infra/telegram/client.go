package telegram

import (
	"context"
	"fmt"
	"unicode/utf8"

	"gopkg.in/telebot.v3"

	domaintg "originality_sync/internal/domain/telegram"
)

// Telegram rejects messages longer than this many characters.
const maxMessageLength = 4096

// TelebotAdapter implements domaintg.Client on top of gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// Send delivers msg as plain text.
func (tba *TelebotAdapter) Send(msg domaintg.Message) error {
	_, err := tba.bot.Send(telebot.ChatID(msg.ChatID), msg.Text, &telebot.SendOptions{
		DisableWebPagePreview: msg.DisablePreview,
	})
	return err
}

// AdminNotifier delivers operational alerts to the admin chat.
// It implements alert.Notifier.
type AdminNotifier struct {
	client  domaintg.Client
	adminID int64
}

func NewAdminNotifier(client domaintg.Client, adminID int64) *AdminNotifier {
	return &AdminNotifier{client: client, adminID: adminID}
}

func (n *AdminNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := domaintg.Message{ChatID: n.adminID, Text: truncate(text, maxMessageLength), DisablePreview: true}
	if err := n.client.Send(msg); err != nil {
		return fmt.Errorf("failed to send alert to admin chat: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
