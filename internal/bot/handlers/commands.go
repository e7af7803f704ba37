package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/dialogue"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
)

// NewStartHandler greets the user and explains how to use the bot.
func NewStartHandler(catalog *reply.Catalog, deliverer delivery.Deliverer, contactPhrase string) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		ctx := RequestContext(c)
		composer := catalog.Composer(dialogue.LanguageFromContext(ctx))
		return deliverer.Deliver(ctx, ChatID(c), []reply.Message{
			composer.Welcome(sender.FirstName),
			composer.Help(contactPhrase),
		})
	}
}

// NewHelpHandler repeats the usage instructions.
func NewHelpHandler(catalog *reply.Catalog, deliverer delivery.Deliverer, contactPhrase string) Handler {
	return func(c telebot.Context) error {
		ctx := RequestContext(c)
		composer := catalog.Composer(dialogue.LanguageFromContext(ctx))
		return deliverer.Deliver(ctx, ChatID(c), []reply.Message{composer.Help(contactPhrase)})
	}
}

// NewResetHandler drops the user's session like typing RESET does.
func NewResetHandler(svc TurnService, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("reset handler invoked without sender context")
			return nil
		}

		ctx := RequestContext(c)
		_, err := svc.HandleEvent(ctx, sender.ID, state.Event{Input: dialogue.ResetCommand, Type: state.EventText})
		if err != nil {
			log.ErrorContext(ctx, "failed to reset session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return err
		}

		return nil
	}
}
