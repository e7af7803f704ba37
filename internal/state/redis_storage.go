package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "session:"
	sessionScanPattern = "session:*"
	sessionScanCount   = 100
)

// RedisStorage persists sessions in Redis as JSON documents.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

var (
	_ Storage = (*RedisStorage)(nil)
	_ Lister  = (*RedisStorage)(nil)
)

// NewRedisStorage initializes a Redis-backed Storage. A zero ttl keeps sessions until deleted.
func NewRedisStorage(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// GetSession returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}

		s.log.Error("failed to get session from redis", "user_id", userID, "error", err)
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.log.Error("failed to decode session", "user_id", userID, "error", err)
		return nil, err
	}

	return &session, nil
}

// SetSession stores the session, refreshing its TTL.
func (s *RedisStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	if session == nil {
		return s.DeleteSession(ctx, userID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		s.log.Error("failed to encode session", "user_id", userID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, sessionKey(userID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session in redis", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// DeleteSession removes the stored session for the given user.
func (s *RedisStorage) DeleteSession(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		s.log.Error("failed to delete session", "user_id", userID, "error", err)
		return err
	}

	return nil
}

// GetAllSessions scans Redis for every stored session.
func (s *RedisStorage) GetAllSessions(ctx context.Context) (map[int64]*Session, error) {
	var cursor uint64
	result := make(map[int64]*Session)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, sessionScanCount).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", "error", err)
			return nil, err
		}

		for _, key := range keys {
			userID, err := userIDFromKey(key)
			if err != nil {
				s.log.Warn("skipping session key with unexpected format", "key", key, "error", err)
				continue
			}

			session, err := s.GetSession(ctx, userID)
			if err != nil {
				if errors.Is(err, ErrSessionNotFound) {
					continue
				}
				return nil, err
			}

			result[userID] = session
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func userIDFromKey(key string) (int64, error) {
	raw, ok := strings.CutPrefix(key, sessionKeyPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid session key: %s", key)
	}

	return strconv.ParseInt(raw, 10, 64)
}
