package usercache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/pkg/redis"
)

func TestCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewMetricsClient(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})))
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	got, err := cache.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	user := &domain.User{ID: 1, TelegramID: 5, FirstName: "Ada", Blocked: true}
	require.NoError(t, cache.Set(ctx, user))
	assert.Equal(t, time.Minute, mr.TTL("user:5"))

	got, err = cache.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	require.NoError(t, cache.Invalidate(ctx, 5))
	assert.False(t, mr.Exists("user:5"))

	require.NoError(t, mr.Set("user:6", "{not json"))
	_, err = cache.Get(ctx, 6)
	assert.ErrorContains(t, err, "decode cached user")
}

func TestCache_Nil(t *testing.T) {
	var cache *Cache
	got, err := cache.Get(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Set(context.Background(), &domain.User{}))
	assert.NoError(t, cache.Invalidate(context.Background(), 1))
}
