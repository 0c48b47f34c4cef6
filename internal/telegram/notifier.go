// Package telegram renders reminder notifications for Telegram. It sits
// outside the core: the dispatcher hands it structured reminder data and
// message formatting happens here.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sandeepkv93/remindd/internal/model"
)

var priorityEmoji = map[model.Priority]string{
	model.PriorityHigh:   "⚠️",
	model.PriorityMedium: "⚡",
	model.PriorityLow:    "✓",
}

type Notifier struct {
	api *tgbotapi.BotAPI
}

func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// Notify sends one reminder message to the owner's chat. The owner id
// doubles as the chat id for direct messages.
func (n *Notifier) Notify(_ context.Context, ownerID int64, rem model.Reminder) error {
	msg := tgbotapi.NewMessage(ownerID, FormatReminder(rem))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func FormatReminder(rem model.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *Reminder: %s*\n\n", rem.Title)
	if rem.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", rem.Category)
	}
	emoji := priorityEmoji[rem.Priority]
	fmt.Fprintf(&b, "Priority: %s %s\n", emoji, capitalize(string(rem.Priority)))
	if rem.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", rem.Description)
	}
	if rem.Recurrence != nil {
		fmt.Fprintf(&b, "🔄 %s\n", rem.Recurrence.Text())
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
