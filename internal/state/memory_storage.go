package state

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStorage keeps sessions in process memory. It suits local runs and tests.
type MemoryStorage struct {
	cache *cache.Cache
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Lister  = (*MemoryStorage)(nil)
)

// NewMemoryStorage creates an in-memory Storage whose entries expire after ttl.
// A zero ttl keeps entries until deleted and a zero cleanupInterval disables the janitor.
func NewMemoryStorage(ttl, cleanupInterval time.Duration) *MemoryStorage {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &MemoryStorage{cache: cache.New(ttl, cleanupInterval)}
}

// GetSession returns a copy of the stored session.
func (m *MemoryStorage) GetSession(_ context.Context, userID int64) (*Session, error) {
	if x, found := m.cache.Get(memoryKey(userID)); found {
		return x.(*Session).Clone(), nil
	}
	return nil, ErrSessionNotFound
}

// SetSession stores a copy of the session.
func (m *MemoryStorage) SetSession(ctx context.Context, userID int64, session *Session) error {
	if session == nil {
		return m.DeleteSession(ctx, userID)
	}

	m.cache.Set(memoryKey(userID), session.Clone(), cache.DefaultExpiration)
	return nil
}

// DeleteSession removes the stored session.
func (m *MemoryStorage) DeleteSession(_ context.Context, userID int64) error {
	m.cache.Delete(memoryKey(userID))
	return nil
}

// GetAllSessions returns copies of every unexpired session.
func (m *MemoryStorage) GetAllSessions(_ context.Context) (map[int64]*Session, error) {
	items := m.cache.Items()
	result := make(map[int64]*Session, len(items))

	for key, item := range items {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		if session, ok := item.Object.(*Session); ok {
			result[userID] = session.Clone()
		}
	}

	return result, nil
}

func memoryKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
