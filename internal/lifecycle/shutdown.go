package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Shutdown runs registered hooks phase by phase; hooks of one phase run in parallel.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook to phase.
func (s *Shutdown) Register(phase Phase, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Phase: phase, Fn: fn})
}

// Execute runs all hooks and returns their joined errors. A failing hook does
// not stop later phases. ctx bounds the whole sequence.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	slices.SortStableFunc(hooks, func(a, b Hook) int { return int(a.Phase) - int(b.Phase) })

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var errs []error
	for len(hooks) > 0 {
		phase := hooks[0].Phase
		end := 1
		for end < len(hooks) && hooks[end].Phase == phase {
			end++
		}

		errs = append(errs, s.runPhase(ctx, phase, hooks[:end])...)
		hooks = hooks[end:]
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func (s *Shutdown) runPhase(ctx context.Context, phase Phase, hooks []Hook) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			log := s.log.With(slog.String("hook", h.Name), slog.String("phase", phase.String()))
			log.Info("running shutdown hook")

			if err := h.Fn(ctx); err != nil {
				log.Error("shutdown hook failed", slog.Any("error", err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				mu.Unlock()
				return
			}

			log.Info("shutdown hook completed")
		}()
	}

	wg.Wait()
	return errs
}
