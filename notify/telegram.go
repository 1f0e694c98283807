package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

// messageSender is the subset of *tele.Bot used to deliver messages
type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier sends alerts to admin chats and broadcasts to users
type TelegramNotifier struct {
	bot          messageSender
	adminChatIDs []int64
	pause        time.Duration
}

// NewTelegramNotifier creates an offline bot that only sends messages
func NewTelegramNotifier(token string, adminChatIDs []int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:          b,
		adminChatIDs: adminChatIDs,
		pause:        100 * time.Millisecond,
	}, nil
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// Notify sends the alert to every admin chat
func (t *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	if len(t.adminChatIDs) == 0 {
		return fmt.Errorf("no telegram admin chats configured")
	}

	text := formatHTML(alert)
	failed := 0
	for _, chatID := range t.adminChatIDs {
		if _, err := t.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeHTML}); err != nil {
			log.WithFields(log.Fields{
				"chat_id": chatID,
				"error":   err,
			}).Warn("Failed to send telegram alert")
			failed++
		}
	}

	if failed == len(t.adminChatIDs) {
		return fmt.Errorf("telegram alert failed for all %d admin chats", failed)
	}
	return nil
}

// Broadcast sends text to each chat in turn, pausing between sends to stay
// under Telegram's rate limits. Returns the number delivered.
func (t *TelegramNotifier) Broadcast(ctx context.Context, chatIDs []int64, text string) (int, error) {
	sent := 0
	for i, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if i > 0 && t.pause > 0 {
			time.Sleep(t.pause)
		}

		if _, err := t.bot.Send(tele.ChatID(chatID), text); err != nil {
			log.WithFields(log.Fields{
				"chat_id": chatID,
				"error":   err,
			}).Debug("Broadcast delivery failed")
			continue
		}
		sent++
	}

	log.WithFields(log.Fields{
		"recipients": len(chatIDs),
		"delivered":  sent,
	}).Info("Broadcast finished")

	return sent, nil
}

func formatHTML(alert Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(alert.Title))
	for _, f := range alert.Fields {
		fmt.Fprintf(&b, "\n%s: <code>%s</code>", html.EscapeString(f.Name), html.EscapeString(f.Value))
	}
	return b.String()
}
