package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:allows", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 5-(i+1), result.Remaining)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:blocks", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, result.Allowed, "attempt %d", i)
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = clk.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	clk.Advance(1100 * time.Millisecond)

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiter_ZeroLimit(t *testing.T) {
	client, mr := setupTestRedis(t)

	result, err := NewRedisLimiter(client, testLogger()).Check(context.Background(), "zero", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.False(t, mr.Exists(KeyPrefix+"zero"))
}

func TestAdaptiveLimiter_FallsBackOnRedisFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	// the fallback allows half of the configured limit
	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "user:1", 4, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "user:1", 4, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
	assert.True(t, limiter.(*AdaptiveLimiter).degraded.Load())
}

func TestAdaptiveLimiter_ReportsPrimaryRejection(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:2", 1, time.Minute)
	require.NoError(t, err)

	_, err = limiter.Check(ctx, "user:2", 1, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCleaner_RemovesExpiredKeys(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour).UnixMilli()
	fresh := time.Now().UnixMilli()
	require.NoError(t, client.ZAdd(ctx, KeyPrefix+"stale", redis.Z{Score: float64(old), Member: "a"}).Err())
	require.NoError(t, client.ZAdd(ctx, KeyPrefix+"live", redis.Z{Score: float64(old), Member: "a"}, redis.Z{Score: float64(fresh), Member: "b"}).Err())

	removed := NewCleaner(client, testLogger(), time.Minute, 5*time.Minute).Cleanup(ctx)
	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists(KeyPrefix+"stale"))

	members, err := client.ZRange(ctx, KeyPrefix+"live", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
