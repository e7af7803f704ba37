package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/i18n"
	"github.com/Proton-105/rumor-bot/internal/idempotency"
	"github.com/Proton-105/rumor-bot/internal/ratelimit"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/testutil"
	"github.com/Proton-105/rumor-bot/pkg/config"
	"github.com/Proton-105/rumor-bot/pkg/logger"
)

func counting(calls *int, err error) handlers.Handler {
	return func(telebot.Context) error {
		*calls++
		return err
	}
}

func TestIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := testutil.DiscardLogger()
	manager := idempotency.NewManager(idempotency.NewRedisStore(client, log), log)
	mw := Idempotency(manager, 1, time.Hour, log)

	calls := 0
	h := mw(counting(&calls, nil))

	require.NoError(t, h(testutil.TextUpdate(100, 5, "hello")))
	require.NoError(t, h(testutil.TextUpdate(100, 5, "hello")))
	assert.Equal(t, 1, calls)

	require.NoError(t, h(testutil.TextUpdate(101, 5, "hello")))
	assert.Equal(t, 2, calls)

	t.Run("handler errors pass through and allow redelivery", func(t *testing.T) {
		failures := 0
		boom := errors.New("boom")
		failing := mw(counting(&failures, boom))

		assert.ErrorIs(t, failing(testutil.TextUpdate(200, 5, "x")), boom)
		assert.ErrorIs(t, failing(testutil.TextUpdate(200, 5, "x")), boom)
		assert.Equal(t, 2, failures)
	})

	t.Run("store outage fails open", func(t *testing.T) {
		mr.Close()
		before := calls
		require.NoError(t, h(testutil.TextUpdate(300, 5, "x")))
		assert.Equal(t, before+1, calls)
	})

	t.Run("disabled", func(t *testing.T) {
		n := 0
		require.NoError(t, Idempotency(nil, 1, time.Hour, log)(counting(&n, nil))(testutil.TextUpdate(1, 1, "x")))
		assert.Equal(t, 1, n)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	manager, err := i18n.Load("en")
	require.NoError(t, err)
	catalog := reply.NewCatalog(manager, reply.Config{SiteURL: "https://site.test"})

	rules := ratelimit.NewRules(config.RateLimitConfig{
		Enabled:   true,
		PerUser:   config.RateLimitRule{Limit: 10, Window: "1m"},
		Events:    config.EventRateLimits{Text: config.RateLimitRule{Limit: 2, Window: "1m"}, Postback: config.RateLimitRule{Limit: 5, Window: "1m"}},
		Whitelist: []int64{99},
	})

	log := testutil.DiscardLogger()
	deliverer := &testutil.Deliverer{}
	mw := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(log), rules, catalog, log)
	mw.SetDeliverer(deliverer)

	calls := 0
	h := mw.Handle(counting(&calls, nil))

	for i := 0; i < 4; i++ {
		require.NoError(t, h(testutil.TextUpdate(i, 5, "hello")))
	}
	assert.Equal(t, 2, calls)

	// one notice per window
	deliveries := deliverer.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, int64(5), deliveries[0].ChatID)
	assert.Equal(t, []reply.Message{catalog.Composer("en").RateLimited()}, deliveries[0].Messages)

	// postbacks have their own budget
	require.NoError(t, h(testutil.CallbackUpdate(10, 5, "pb:1")))
	assert.Equal(t, 3, calls)

	for i := 0; i < 5; i++ {
		require.NoError(t, h(testutil.TextUpdate(20+i, 99, "hello")))
	}
	assert.Equal(t, 8, calls)
}

func TestMetrics(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	assert.ErrorIs(t, Metrics(counting(&calls, boom))(testutil.TextUpdate(1, 1, "/start")), boom)
	assert.NoError(t, Metrics(counting(&calls, nil))(testutil.PhotoUpdate(2, 1)))
	assert.Equal(t, 2, calls)
	assert.Nil(t, Metrics(nil))

	assert.Equal(t, "ok", updateStatus(nil))
	assert.Equal(t, "error:unknown", updateStatus(boom))
	assert.Equal(t, "error:"+apperrors.CodeDatabase, updateStatus(apperrors.NewDatabaseError(boom)))
}

func TestHTTPLogging(t *testing.T) {
	h := logger.Middleware(HTTPLogging(testutil.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(logger.CorrelationIDHeader))
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	n, err := rec.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, http.StatusOK, rec.status)
}
