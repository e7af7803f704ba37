package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendPrimary  = "redis"
	backendFallback = "fallback"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rumorbot_ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	primaryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rumorbot_ratelimit_redis_errors_total",
		Help: "Redis errors that sent a check to the in-memory fallback.",
	})

	degradedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rumorbot_ratelimit_degraded",
		Help: "1 while checks are served by the in-memory fallback.",
	})
)

// AdaptiveLimiter checks against the shared Redis limiter and, while Redis
// fails, against a local limiter that allows half the configured limit.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	degraded atomic.Bool
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check returns ErrLimitExceeded with the rejected Result when key is over its limit.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		if a.degraded.CompareAndSwap(true, false) {
			degradedGauge.Set(0)
			a.log.Info("redis limiter recovered")
		}
		return count(backendPrimary, result)
	}

	primaryErrorsTotal.Inc()
	if a.degraded.CompareAndSwap(false, true) {
		degradedGauge.Set(1)
		a.log.Warn("redis limiter failed, falling back to in-memory", slog.String("key", key), slog.Any("error", err))
	}

	result, err = a.fallback.Check(ctx, key, max(limit/2, 1), window)
	if err != nil && !errors.Is(err, ErrLimitExceeded) {
		return result, err
	}
	return count(backendFallback, result)
}

func count(backend string, result *Result) (*Result, error) {
	if result == nil {
		return nil, nil
	}
	if !result.Allowed {
		checksTotal.WithLabelValues(backend, "rejected").Inc()
		return result, ErrLimitExceeded
	}
	checksTotal.WithLabelValues(backend, "allowed").Inc()
	return result, nil
}
