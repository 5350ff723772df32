// Package notify forwards customer support messages to the operators'
// Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// maxMessageLen is Telegram's limit for a single text message.
const maxMessageLen = 4096

// Telegram posts notices to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot token and targets chatID.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify sends text to the configured chat.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// SupportNotice renders the operator notice for a customer message. p may be
// nil when the parcel has been deleted in the meantime.
func SupportNotice(p *model.Parcel, m *model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New support message for %s\n", m.ParcelID)
	if p != nil {
		fmt.Fprintf(&b, "%s -> %s, %s (%s)\n", p.Sender, p.Receiver, p.Status, p.State)
	}
	fmt.Fprintf(&b, "%s\n\n%s", m.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"), m.Content)
	text := b.String()
	if len(text) > maxMessageLen {
		text = truncate(text, maxMessageLen-3) + "..."
	}
	return text
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
