package handlers

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewTurnHandler feeds text, postbacks and attachments to the dialogue and delivers its replies.
func NewTurnHandler(svc TurnService, deliverer delivery.Deliverer, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("turn handler invoked without sender")
			return nil
		}

		if c.Callback() != nil {
			if err := c.Respond(); err != nil {
				log.Debug("failed to acknowledge callback", slog.Any("error", err))
			}
		}

		event, ok := EventFromContext(c)
		if !ok {
			return nil
		}

		ctx := RequestContext(c)
		replies, err := svc.HandleEvent(ctx, sender.ID, event)
		switch {
		case errors.Is(err, state.ErrSessionLocked):
			log.InfoContext(ctx, "dropping event for busy session", slog.Int64("user_id", sender.ID))
		case err != nil:
			log.ErrorContext(ctx, "turn finished with error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		return deliverer.Deliver(ctx, ChatID(c), replies)
	}
}
