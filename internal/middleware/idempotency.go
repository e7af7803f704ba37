package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
	"github.com/Proton-105/rumor-bot/internal/idempotency"
)

// Idempotency ensures handlers execute at most once per Telegram update.
// When the store is unreachable the update is handled anyway.
func Idempotency(manager idempotency.Manager, botID int64, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := idempotency.UpdateKey(botID, c.Update().ID)
			if key == "" {
				return next(c)
			}

			ran := false
			result, err := manager.Execute(context.Background(), key, ttl, func(context.Context) error {
				ran = true
				return next(c)
			})

			switch {
			case err == nil && result.Duplicate:
				log.Info("skipping duplicate update", slog.Int("update_id", c.Update().ID))
				return nil
			case errors.Is(err, idempotency.ErrRequestInProgress):
				return nil
			case err != nil && !ran:
				log.Warn("idempotency store unavailable", slog.Int("update_id", c.Update().ID), slog.Any("error", err))
				return next(c)
			default:
				return err
			}
		}
	}
}
