// Package delivery sends dialogue replies to Telegram chats.
package delivery

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/keyboard"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/pkg/metrics"
)

// Delivery modes used as metric labels.
const (
	ModeInline = "inline"
	ModeWorker = "worker"
	ModeQueue  = "queue"
)

// Sender is the subset of *telebot.Bot used for delivery.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Deliverer hands a batch of replies to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, messages []reply.Message) error
}

// Direct renders replies and sends them one by one through the Telegram API.
type Direct struct {
	sender Sender
	mode   string
	log    *slog.Logger
}

var _ Deliverer = (*Direct)(nil)

// NewDirect builds a Deliverer that sends immediately. mode only labels metrics.
func NewDirect(sender Sender, mode string, log *slog.Logger) *Direct {
	if log == nil {
		log = slog.Default()
	}
	if mode == "" {
		mode = ModeInline
	}

	return &Direct{sender: sender, mode: mode, log: log}
}

// Deliver stops at the first failed message; earlier messages stay delivered.
func (d *Direct) Deliver(ctx context.Context, chatID int64, messages []reply.Message) error {
	if len(messages) == 0 {
		return nil
	}

	out, err := keyboard.Render(messages)
	if err != nil {
		metrics.RecordDelivery(d.mode, "render_error")
		return fmt.Errorf("render replies: %w", err)
	}

	to := telebot.ChatID(chatID)
	for i, msg := range out {
		if err := ctx.Err(); err != nil {
			metrics.RecordDelivery(d.mode, "canceled")
			return err
		}
		if msg.Text == "" && msg.Markup == nil {
			continue
		}

		if _, err := d.sender.Send(to, msg.Text, msg.Options()...); err != nil {
			metrics.RecordDelivery(d.mode, "error")
			d.log.Error("reply delivery failed",
				slog.Int64("chat_id", chatID),
				slog.Int("index", i),
				slog.Int("total", len(out)),
				slog.Any("error", err),
			)
			return fmt.Errorf("send message %d/%d: %w", i+1, len(out), err)
		}
	}

	metrics.RecordDelivery(d.mode, "ok")
	return nil
}
