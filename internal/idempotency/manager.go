// Package idempotency makes sure each inbound chat update is handled at most once.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned when another worker currently owns the key.
var ErrRequestInProgress = errors.New("update with this key is already in progress")

// DefaultLockTTL bounds how long a crashed worker can hold a key.
const DefaultLockTTL = 2 * time.Minute

// Operation is the work guarded by a key.
type Operation func(ctx context.Context) error

// Result describes how Execute resolved a key.
type Result struct {
	// Duplicate is set when the key was already completed and fn did not run.
	Duplicate bool
	// CompletedAt is the time the first successful run finished.
	CompletedAt time.Time
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	lockTTL time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// NewManager wraps a store. A failed operation releases its key so a
// redelivered update is processed again.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		lockTTL: DefaultLockTTL,
		log:     log,
		now:     time.Now,
	}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	locked, err := m.store.Lock(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}

	if !locked {
		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if record != nil && record.Status == StatusCompleted {
			return &Result{Duplicate: true, CompletedAt: record.CompletedAt}, nil
		}
		return nil, ErrRequestInProgress
	}

	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("idempotency lock release failed", slog.String("key", key), slog.Any("error", err))
		}
	}()

	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil && record.Status == StatusCompleted {
		return &Result{Duplicate: true, CompletedAt: record.CompletedAt}, nil
	}

	if err := fn(ctx); err != nil {
		return nil, err
	}

	completed := &Record{Status: StatusCompleted, CompletedAt: m.now().UTC()}
	if err := m.store.Set(context.WithoutCancel(ctx), key, completed, ttl); err != nil {
		return nil, err
	}

	return &Result{CompletedAt: completed.CompletedAt}, nil
}
