package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Proton-105/rumor-bot/internal/health"
)

const probeTimeout = 5 * time.Second

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes answers liveness from the process state and readiness from the
// registered dependency checks.
type Probes struct {
	checker  *health.Checker
	draining atomic.Bool
	log      *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	if checker == nil {
		checker = health.NewChecker(log)
	}
	return &Probes{checker: checker, log: log}
}

// Drain marks the process as shutting down so readiness starts failing.
func (p *Probes) Drain() {
	p.draining.Store(true)
}

// Liveness reports success while the process runs.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.DebugContext(ctx, "liveness probe called")
	return nil
}

// Readiness fails while draining or when any dependency check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return errors.New("shutting down")
	}

	results := p.checker.Check(ctx)
	if health.Healthy(results) {
		return nil
	}

	var failed []string
	for _, name := range p.checker.Names() {
		if status, ok := results[name]; ok && status != "OK" {
			failed = append(failed, name+": "+status)
		}
	}
	return errors.New(strings.Join(failed, "; "))
}

// Register mounts /healthz and /readyz on mux.
func (p *Probes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", p.handler(p.Liveness))
	mux.HandleFunc("/readyz", p.handler(p.Readiness))
}

func (p *Probes) handler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		body := map[string]string{"status": "ok"}
		status := http.StatusOK
		if err := probe(ctx); err != nil {
			body = map[string]string{"status": "unavailable", "error": err.Error()}
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
