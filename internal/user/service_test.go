package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/repository"
	"github.com/Proton-105/rumor-bot/internal/usercache"
	"github.com/Proton-105/rumor-bot/pkg/redis"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	user.ID = 99
	return args.Error(0)
}

func (m *mockRepository) UpdateLastActiveAt(ctx context.Context, telegramID int64) error {
	return m.Called(ctx, telegramID).Error(0)
}

func (m *mockRepository) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	return m.Called(ctx, telegramID, blocked).Error(0)
}

func (m *mockRepository) ListBlocked(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache(t *testing.T) (*usercache.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewMetricsClient(redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})))
	t.Cleanup(func() { _ = client.Close() })

	return usercache.NewCache(client, time.Minute), mr
}

func TestService_IsBlocked(t *testing.T) {
	ctx := context.Background()

	t.Run("static blocklist without database", func(t *testing.T) {
		s := NewService(nil, nil, []int64{1}, testLogger())

		blocked, err := s.IsBlocked(ctx, 1)
		require.NoError(t, err)
		assert.True(t, blocked)

		blocked, err = s.IsBlocked(ctx, 2)
		require.NoError(t, err)
		assert.False(t, blocked)

		s.SetStaticBlocklist([]int64{2})
		blocked, err = s.IsBlocked(ctx, 2)
		require.NoError(t, err)
		assert.True(t, blocked)
	})

	t.Run("stored flag is cached", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("FindByTelegramID", mock.Anything, int64(3)).Return(&domain.User{TelegramID: 3, Blocked: true}, nil).Once()
		cache, mr := newCache(t)
		s := NewService(repo, cache, nil, testLogger())

		for range 2 {
			blocked, err := s.IsBlocked(ctx, 3)
			require.NoError(t, err)
			assert.True(t, blocked)
		}
		assert.True(t, mr.Exists("user:3"))
		repo.AssertExpectations(t)
	})

	t.Run("unknown user is not blocked", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("FindByTelegramID", mock.Anything, int64(4)).Return(nil, repository.ErrUserNotFound)
		s := NewService(repo, nil, nil, testLogger())

		blocked, err := s.IsBlocked(ctx, 4)
		require.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("database errors surface", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("FindByTelegramID", mock.Anything, int64(5)).Return(nil, errors.New("connection reset"))
		s := NewService(repo, nil, nil, testLogger())

		_, err := s.IsBlocked(ctx, 5)
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestService_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	repo := new(mockRepository)
	repo.On("FindByTelegramID", mock.Anything, int64(10)).Return(nil, repository.ErrUserNotFound).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.TelegramID == 10 && u.FirstName == "Ada" && u.LanguageCode == "zh-hant" && u.CreatedAt.Equal(now)
	})).Return(nil).Once()

	cache, _ := newCache(t)
	s := NewService(repo, cache, nil, testLogger())
	s.now = func() time.Time { return now }

	tu := &telebot.User{ID: 10, FirstName: "Ada", LanguageCode: "zh-hant"}
	created, err := s.GetOrCreate(ctx, tu)
	require.NoError(t, err)
	assert.Equal(t, int64(99), created.ID)

	again, err := s.GetOrCreate(ctx, tu)
	require.NoError(t, err)
	assert.Equal(t, int64(99), again.ID)

	repo.AssertExpectations(t)

	_, err = s.GetOrCreate(ctx, nil)
	assert.Error(t, err)
}

func TestService_SetBlocked(t *testing.T) {
	ctx := context.Background()

	repo := new(mockRepository)
	repo.On("SetBlocked", mock.Anything, int64(7), true).Return(nil)
	cache, mr := newCache(t)
	require.NoError(t, cache.Set(ctx, &domain.User{TelegramID: 7}))

	s := NewService(repo, cache, nil, testLogger())
	require.NoError(t, s.SetBlocked(ctx, 7, true))
	assert.False(t, mr.Exists("user:7"))

	assert.Error(t, NewService(nil, nil, nil, testLogger()).SetBlocked(ctx, 7, true))
}
