package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
	"github.com/Proton-105/rumor-bot/internal/delivery"
	"github.com/Proton-105/rumor-bot/internal/dialogue"
	"github.com/Proton-105/rumor-bot/internal/ratelimit"
	"github.com/Proton-105/rumor-bot/internal/reply"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter   ratelimit.Limiter
	rules     *ratelimit.Rules
	catalog   *reply.Catalog
	deliverer delivery.Deliverer
	log       *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component. The
// first rejected update of a window is answered; later ones are dropped silently.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, catalog *reply.Catalog, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		catalog: catalog,
		log:     log,
	}
}

// SetDeliverer sets where rate limit notices are sent. It must be called
// before the bot starts.
func (m *RateLimitMiddleware) SetDeliverer(d delivery.Deliverer) {
	m.deliverer = d
}

// Handle returns a middleware that enforces the per-user and per-event limits.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		ctx := handlers.RequestContext(c)
		kind := handlers.EventKind(c)

		allowed, notify := m.check(ctx, sender.ID, kind)
		if allowed {
			return next(c)
		}

		m.log.WarnContext(ctx, "rate limit exceeded", slog.Int64("user_id", sender.ID), slog.String("kind", kind))
		if !notify || m.deliverer == nil || m.catalog == nil {
			return nil
		}

		composer := m.catalog.Composer(dialogue.LanguageFromContext(ctx))
		return m.deliverer.Deliver(ctx, handlers.ChatID(c), []reply.Message{composer.RateLimited()})
	}
}

// check evaluates the per-user rule and then the rule of the event kind.
// Limiter failures let the update through.
func (m *RateLimitMiddleware) check(ctx context.Context, userID int64, kind string) (allowed, notify bool) {
	type rule struct {
		key string
		get func() (int, time.Duration, error)
	}

	rules := []rule{{key: fmt.Sprintf("user:%d", userID), get: m.rules.GetPerUserLimit}}
	if kind == ratelimit.EventText || kind == ratelimit.EventPostback {
		rules = append(rules, rule{
			key: fmt.Sprintf("user:%d:%s", userID, kind),
			get: func() (int, time.Duration, error) { return m.rules.GetEventLimit(kind) },
		})
	}

	for _, r := range rules {
		limit, window, err := r.get()
		if err != nil {
			m.log.Debug("rate limit rule not configured", slog.String("key", r.key), slog.Any("error", err))
			continue
		}

		result, err := m.limiter.Check(ctx, r.key, limit, window)
		if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}

		if result != nil && !result.Allowed {
			m.log.DebugContext(ctx, "rate limit rule rejected update",
				slog.String("key", r.key),
				slog.Duration("retry_after", result.RetryAfter(time.Now())),
			)
			return false, m.firstRejection(ctx, r.key, window)
		}
	}

	return true, false
}

// firstRejection reports whether no notice was sent for key in the current window.
func (m *RateLimitMiddleware) firstRejection(ctx context.Context, key string, window time.Duration) bool {
	result, err := m.limiter.Check(ctx, key+":notice", 1, window)
	if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
		return false
	}
	return result != nil && result.Allowed
}
