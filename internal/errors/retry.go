package errors

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often and how patiently a retryable call is repeated.
type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries    int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRetryPolicy waits 200ms, 400ms and 800ms between four attempts.
var DefaultRetryPolicy = RetryPolicy{
	Retries:    3,
	Initial:    100 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// WithRetry runs fn under DefaultRetryPolicy.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultRetryPolicy.Do(ctx, fn)
}

// Do runs fn until it succeeds, returns a non-retryable error or the retries
// are exhausted. Backoff waits stop early when ctx is done and the last error
// is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= p.Retries {
			return err
		}

		timer := time.NewTimer(p.Backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Backoff is the wait before the given retry, counting from 1.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	delay := p.Initial
	for i := 0; i < retry; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.Max > 0 && delay >= p.Max {
			return p.Max
		}
	}
	return delay
}

func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}
	return false
}
