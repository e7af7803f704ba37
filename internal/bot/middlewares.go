package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/dialogue"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/user"
	"github.com/Proton-105/rumor-bot/pkg/logger"
)

const lastActiveTimeout = 5 * time.Second

// apologize sends the localized apology.
func apologize(c telebot.Context, catalog *reply.Catalog, deliverer delivery.Deliverer) error {
	ctx := handlers.RequestContext(c)
	apology := catalog.Composer(dialogue.LanguageFromContext(ctx)).Apology()
	return deliverer.Deliver(ctx, handlers.ChatID(c), []reply.Message{apology})
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler, catalog *reply.Catalog, deliverer delivery.Deliverer) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					if errHandler != nil {
						appErr := apperrors.NewStateError("panic recovered", fmt.Errorf("%v", r))
						errHandler.Handle(handlers.RequestContext(c), appErr)
					}

					if sendErr := apologize(c, catalog, deliverer); sendErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler, catalog *reply.Catalog, deliverer delivery.Deliverer, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if errHandler != nil {
				errHandler.Handle(handlers.RequestContext(c), err)
			}

			if sendErr := apologize(c, catalog, deliverer); sendErr != nil {
				log.Warn("failed to notify user about error", slog.Any("error", sendErr))
			}

			return nil
		}
	}
}

// LoggingMiddleware assigns the update a correlation id and logs basic telemetry.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			correlationID := logger.NewCorrelationID()
			c.Set(handlers.ContextKeyCorrelationID, correlationID)

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}

			attrs := []any{
				slog.Int64("user_id", userID),
				slog.Int("update_id", c.Update().ID),
				slog.String("kind", handlers.EventKind(c)),
				slog.String("correlation_id", correlationID),
			}

			log.Debug("handling update", attrs...)
			err := next(c)
			log.Info("handled update", append(attrs,
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)...)

			return err
		}
	}
}

// UserMiddleware registers first-time senders and records activity without
// delaying the update.
func UserMiddleware(users *user.Service, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if users == nil || c.Sender() == nil {
				return next(c)
			}

			sender := *c.Sender()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), lastActiveTimeout)
				defer cancel()

				u, err := users.GetOrCreate(ctx, &sender)
				if err != nil {
					log.Warn("failed to register user", slog.Int64("user_id", sender.ID), slog.Any("error", err))
					return
				}
				if u == nil {
					return
				}
				if err := users.UpdateLastActive(ctx, sender.ID); err != nil {
					log.Warn("failed to update last activity", slog.Int64("user_id", sender.ID), slog.Any("error", err))
				}
			}()

			return next(c)
		}
	}
}
