package state

import (
	"context"
	"log/slog"
	"time"
)

// SessionStore is a Storage that can also list its sessions.
type SessionStore interface {
	Storage
	Lister
}

// Cleaner resets sessions that have been parked outside StateInit for too long.
type Cleaner struct {
	store      SessionStore
	log        *slog.Logger
	staleAfter time.Duration
	interval   time.Duration
	now        func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(store SessionStore, log *slog.Logger, staleAfter, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		store:      store,
		log:        log,
		staleAfter: staleAfter,
		interval:   interval,
		now:        time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.store == nil || c.interval <= 0 || c.staleAfter <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup deletes every stale session once and returns how many were removed.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	sessions, err := c.store.GetAllSessions(ctx)
	if err != nil {
		c.log.Error("session cleaner failed to list sessions", slog.Any("error", err))
		return 0
	}

	cutoff := c.now().Add(-c.staleAfter).UnixMilli()
	removed := 0

	for userID, session := range sessions {
		if session == nil || session.State == StateInit || session.State == "" {
			continue
		}
		if session.IssuedAt >= cutoff {
			continue
		}

		if err := c.store.DeleteSession(ctx, userID); err != nil {
			c.log.Error("session cleaner failed to delete session", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}

		removed++
		c.log.Info("stale session cleared", slog.Int64("user_id", userID), slog.String("state", string(session.State)))
	}

	return removed
}
