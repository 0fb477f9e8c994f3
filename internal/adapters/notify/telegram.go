package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Telegram implements ports.Notifier by sending Markdown alerts to one
// chat, grounded on sniperterminal's NotificationService (bot
// construction, fire-and-forget Send, Markdown parse mode) but
// generalized to the core's OrderEvent/Summary shapes instead of that
// donor's free-form string messages.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates against the Bot API. A zero chatID is valid;
// no messages are sent until one is configured.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) PublishOrderEvent(ctx context.Context, event ports.OrderEvent) error {
	return t.send(buildOrderEventMessage(event.Order))
}

func (t *Telegram) PublishSummary(ctx context.Context, summary ports.Summary) error {
	return t.send(buildSummaryMessage(summary))
}

func buildOrderEventMessage(o domain.Order) string {
	if o.Status == domain.OrderFilled {
		return fmt.Sprintf("*FILLED* `%s` %s\nAccount: %s\nQty: %.6f @ %.4f",
			o.Symbol, o.Direction, o.AccountID, o.FilledQuantity, o.FilledPrice)
	}
	return fmt.Sprintf("*FAILED* `%s` %s\nAccount: %s\nKind: %s\nReason: %s",
		o.Symbol, o.Direction, o.AccountID, o.ErrorKind, o.ErrorDetail)
}

func buildSummaryMessage(summary ports.Summary) string {
	return fmt.Sprintf("*EXECUTION SUMMARY* (group `%s`)\n%d/%d accounts filled, %d failed",
		summary.GroupID, summary.Succeeded, summary.TotalAccounts, summary.Failed)
}

// send is fire-and-forget like the donor's Notify: a dropped alert should
// never block or fail the caller's cycle.
func (t *Telegram) send(msg string) error {
	if t.chatID == 0 {
		return nil
	}
	go func() {
		cfg := tgbotapi.NewMessage(t.chatID, msg)
		cfg.ParseMode = "Markdown"
		if _, err := t.bot.Send(cfg); err != nil {
			slog.Warn("notify: telegram send failed", "err", err)
		}
	}()
	return nil
}
