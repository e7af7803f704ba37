package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionLockKeyPattern = "session:lock:%d"
	defaultLockTTL        = 30 * time.Second
)

// unlockScript deletes the lock only while it still carries the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ErrSessionLocked indicates that another turn for the same user is still running.
var ErrSessionLocked = errors.New("session is locked, try again later")

// Locker serializes turns of the same user.
type Locker interface {
	Lock(ctx context.Context, userID int64) error
	Unlock(ctx context.Context, userID int64)
}

// RedisLocker holds a per-user lock in Redis so that several bot replicas
// never run two turns of one user at the same time.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[int64]string
}

// NewRedisLocker creates a Redis-backed Locker. The ttl bounds how long a crashed turn can hold the lock.
func NewRedisLocker(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &RedisLocker{
		client: client,
		log:    log,
		ttl:    ttl,
		tokens: make(map[int64]string),
	}
}

// Lock acquires the user's lock or returns ErrSessionLocked.
func (l *RedisLocker) Lock(ctx context.Context, userID int64) error {
	if l.client == nil {
		l.log.Warn("redis client not configured for session locks; skipping", "user_id", userID)
		return nil
	}

	key := fmt.Sprintf(sessionLockKeyPattern, userID)
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.log.Error("failed to acquire session lock", "user_id", userID, "error", err)
		return err
	}

	if !acquired {
		l.log.Warn("session lock already held", "user_id", userID)
		return ErrSessionLocked
	}

	l.mu.Lock()
	l.tokens[userID] = token
	l.mu.Unlock()

	return nil
}

// Unlock releases the user's lock if it is still the one this locker took.
// A lock that expired and was taken by someone else is left alone.
func (l *RedisLocker) Unlock(ctx context.Context, userID int64) {
	if l.client == nil {
		return
	}

	l.mu.Lock()
	token, ok := l.tokens[userID]
	delete(l.tokens, userID)
	l.mu.Unlock()
	if !ok {
		return
	}

	key := fmt.Sprintf(sessionLockKeyPattern, userID)
	released, err := unlockScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Int()
	if err != nil {
		l.log.Error("failed to release session lock", "user_id", userID, "error", err)
		return
	}
	if released == 0 {
		l.log.Warn("session lock expired before release", "user_id", userID)
	}
}

// LocalLocker serializes turns within a single process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

// NewLocalLocker creates an in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[int64]struct{})}
}

// Lock marks the user as busy or returns ErrSessionLocked.
func (l *LocalLocker) Lock(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[userID]; busy {
		return ErrSessionLocked
	}
	l.held[userID] = struct{}{}
	return nil
}

// Unlock releases the user.
func (l *LocalLocker) Unlock(_ context.Context, userID int64) {
	l.mu.Lock()
	delete(l.held, userID)
	l.mu.Unlock()
}
