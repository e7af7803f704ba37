// Package handlers turns Telegram updates into dialogue events and answers commands.
package handlers

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/keyboard"
	"github.com/Proton-105/rumor-bot/internal/dialogue"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
	"github.com/Proton-105/rumor-bot/pkg/logger"
)

// Handler processes bot updates.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// TurnService runs one dialogue turn.
type TurnService interface {
	HandleEvent(ctx context.Context, userID int64, event state.Event) ([]reply.Message, error)
}

// ContextKeyCorrelationID stores the update's correlation id in telebot.Context.
const ContextKeyCorrelationID = "correlation_id"

// KindCommand labels slash commands in logs and metrics.
const KindCommand = "command"

// EventFromContext maps a Telegram update to a dialogue event. Callbacks
// that were not produced by the dialogue are rejected.
func EventFromContext(c telebot.Context) (state.Event, bool) {
	if cb := c.Callback(); cb != nil {
		payload, err := keyboard.DecodePostback(cb.Data)
		if err != nil {
			return state.Event{}, false
		}
		return state.Event{Input: payload, Type: state.EventPostback}, true
	}

	msg := c.Message()
	if msg == nil {
		return state.Event{}, false
	}
	if msg.Text != "" {
		return state.Event{Input: msg.Text, Type: state.EventText}, true
	}
	if isAttachment(msg) {
		return state.Event{Type: state.EventAttachment}, true
	}
	return state.Event{}, false
}

// EventKind names the kind of update for logs, metrics and rate limits.
func EventKind(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}
	if msg := c.Message(); c.Callback() == nil && msg != nil && strings.HasPrefix(msg.Text, "/") {
		return KindCommand
	}
	if event, ok := EventFromContext(c); ok {
		return string(event.Type)
	}
	return "unknown"
}

// RequestContext carries the update's correlation id and the sender's language.
func RequestContext(c telebot.Context) context.Context {
	ctx := context.Background()
	if id, ok := c.Get(ContextKeyCorrelationID).(string); ok && id != "" {
		ctx = logger.WithCorrelationID(ctx, id)
	} else {
		ctx = logger.EnsureCorrelationID(ctx)
	}

	if sender := c.Sender(); sender != nil && sender.LanguageCode != "" {
		ctx = dialogue.WithLanguage(ctx, sender.LanguageCode)
	}
	return ctx
}

// ChatID is where replies to the update go.
func ChatID(c telebot.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

func isAttachment(msg *telebot.Message) bool {
	return msg.Photo != nil || msg.Video != nil || msg.Document != nil ||
		msg.Sticker != nil || msg.Voice != nil || msg.Audio != nil ||
		msg.Animation != nil || msg.VideoNote != nil || msg.Location != nil ||
		msg.Contact != nil
}
