package errors

import (
	"errors"
	"sync"
	"time"
)

const (
	DefaultFailureRatio   = 0.5
	DefaultMinRequests    = 10
	DefaultOpenTimeout    = 30 * time.Second
	DefaultHalfOpenProbes = 3
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

var (
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	ErrHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// BreakerConfig tunes a CircuitBreaker. Zero values take the defaults.
type BreakerConfig struct {
	// FailureRatio of at least MinRequests calls trips the breaker.
	FailureRatio float64
	MinRequests  int
	// OpenTimeout is how long calls are rejected before probing again.
	OpenTimeout time.Duration
	// HalfOpenProbes calls are let through while probing; that many
	// successes close the breaker, one failure opens it again.
	HalfOpenProbes int
	// OnStateChange is called outside the breaker's lock after every transition.
	OnStateChange func(from, to State)
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureRatio <= 0 {
		c.FailureRatio = DefaultFailureRatio
	}
	if c.MinRequests <= 0 {
		c.MinRequests = DefaultMinRequests
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.HalfOpenProbes <= 0 {
		c.HalfOpenProbes = DefaultHalfOpenProbes
	}
	return c
}

// CircuitBreaker stops calling a failing dependency for a while once enough
// of its recent calls have failed.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	requests  int
	failures  int
	probes    int
	successes int
	openedAt  time.Time
}

type transition struct {
	from, to State
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		state: StateClosed,
	}
}

// Call runs fn unless the breaker is open and records its outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.before(); err != nil {
		return err
	}

	err := fn()
	cb.after(err == nil)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	var changed []transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changed)
	}()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		changed = append(changed, cb.setStateLocked(StateHalfOpen))
	}

	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenProbes {
			return ErrHalfOpenTooManyRequests
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) after(ok bool) {
	cb.mu.Lock()
	var changed []transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changed)
	}()

	switch cb.state {
	case StateHalfOpen:
		if !ok {
			changed = append(changed, cb.setStateLocked(StateOpen))
			return
		}
		cb.successes++
		if cb.successes >= cb.cfg.HalfOpenProbes {
			changed = append(changed, cb.setStateLocked(StateClosed))
		}
	case StateClosed:
		cb.requests++
		if !ok {
			cb.failures++
		}
		if cb.requests >= cb.cfg.MinRequests &&
			float64(cb.failures)/float64(cb.requests) >= cb.cfg.FailureRatio {
			changed = append(changed, cb.setStateLocked(StateOpen))
		}
	}
}

func (cb *CircuitBreaker) setStateLocked(to State) transition {
	t := transition{from: cb.state, to: to}
	cb.state = to
	cb.requests, cb.failures, cb.probes, cb.successes = 0, 0, 0, 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	return t
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.cfg.OnStateChange == nil {
		return
	}
	for _, t := range changes {
		if t.from != t.to {
			cb.cfg.OnStateChange(t.from, t.to)
		}
	}
}
