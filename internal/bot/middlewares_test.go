package bot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/testutil"
	"github.com/Proton-105/rumor-bot/internal/user"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// staleUsers knows every user but cannot record their activity.
type staleUsers struct{}

func (staleUsers) FindByTelegramID(_ context.Context, telegramID int64) (*domain.User, error) {
	return &domain.User{ID: 1, TelegramID: telegramID}, nil
}

func (staleUsers) Create(context.Context, *domain.User) error { return nil }

func (staleUsers) UpdateLastActiveAt(context.Context, int64) error {
	return errors.New("connection reset")
}

func (staleUsers) SetBlocked(context.Context, int64, bool) error { return nil }

func (staleUsers) ListBlocked(context.Context) ([]int64, error) { return nil, nil }

func TestUserMiddleware_LogsLastActiveFailure(t *testing.T) {
	var logs lockedBuffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	users := user.NewService(staleUsers{}, nil, nil, testutil.DiscardLogger())

	called := false
	handler := UserMiddleware(users, log)(func(telebot.Context) error {
		called = true
		return nil
	})

	require.NoError(t, handler(testutil.TextUpdate(1, 42, "hello")))
	assert.True(t, called)

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "failed to update last activity")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), "user_id=42")
	assert.Contains(t, logs.String(), "connection reset")
}
