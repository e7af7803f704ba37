package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/rumor-bot/internal/state"
)

const defaultCollectInterval = 10 * time.Second

var (
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of chat updates received labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_update_duration_seconds",
			Help:    "Duration of chat update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_turns_total",
			Help: "Total number of dialogue turns labeled by starting state and outcome",
		},
		[]string{"state", "outcome"},
	)
	turnDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogue_turn_duration_seconds",
			Help:    "Duration of dialogue turns in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)
	autoAdvancesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_auto_advances_total",
			Help: "Total number of disambiguation steps skipped on behalf of the user",
		},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of state transitions",
		},
		[]string{"from", "to"},
	)
	backendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Total number of content backend calls labeled by operation and status",
		},
		[]string{"operation", "status"},
	)
	backendCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_duration_seconds",
			Help:    "Latency of content backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_open",
			Help: "1 while the named circuit breaker rejects calls, 0.5 while it probes, 0 when closed",
		},
		[]string{"name"},
	)
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_deliveries_total",
			Help: "Total number of reply batches delivered labeled by mode and status",
		},
		[]string{"mode", "status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of stored sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_state",
			Help: "Number of stored sessions per state",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// RecordUpdate counts a handled chat update and its duration.
func RecordUpdate(kind, status string, duration time.Duration) {
	kind = orUnknown(kind)
	updatesTotal.WithLabelValues(kind, orUnknown(status)).Inc()
	updateDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordTurn counts a dialogue turn by the state it started in.
func RecordTurn(from, outcome string, duration time.Duration) {
	from = orUnknown(from)
	turnsTotal.WithLabelValues(from, orUnknown(outcome)).Inc()
	turnDurationSeconds.WithLabelValues(from).Observe(duration.Seconds())
}

// RecordAutoAdvance counts a skipped disambiguation step.
func RecordAutoAdvance() {
	autoAdvancesTotal.Inc()
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordBackendCall counts a content backend call and its latency.
func RecordBackendCall(operation, status string, duration time.Duration) {
	operation = orUnknown(operation)
	backendCallsTotal.WithLabelValues(operation, orUnknown(status)).Inc()
	backendCallDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetBreakerState exports the state of a circuit breaker.
func SetBreakerState(name, st string) {
	value := 0.0
	switch st {
	case "open":
		value = 1
	case "half_open":
		value = 0.5
	}
	breakerState.WithLabelValues(orUnknown(name)).Set(value)
}

// RecordDelivery counts a delivered reply batch.
func RecordDelivery(mode, status string) {
	deliveriesTotal.WithLabelValues(orUnknown(mode), orUnknown(status)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

// SetActiveSessions updates the gauge for stored sessions.
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// SetSessionsByState updates the gauge for the given state.
func SetSessionsByState(st string, count int) {
	sessionsByState.WithLabelValues(orUnknown(st)).Set(float64(count))
}

// StateCollector periodically counts stored sessions per state.
type StateCollector struct {
	lister   state.Lister
	interval time.Duration
	log      *slog.Logger
}

// NewStateCollector builds a collector over lister. A non-positive interval means 10 seconds.
func NewStateCollector(lister state.Lister, interval time.Duration, log *slog.Logger) *StateCollector {
	if interval <= 0 {
		interval = defaultCollectInterval
	}
	if log == nil {
		log = slog.Default()
	}

	return &StateCollector{lister: lister, interval: interval, log: log}
}

// Run collects immediately and then every interval until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.lister == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.Collect(ctx); err != nil {
			c.log.Warn("failed to collect session metrics", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect refreshes the session gauges once.
func (c *StateCollector) Collect(ctx context.Context) error {
	sessions, err := c.lister.GetAllSessions(ctx)
	if err != nil {
		return err
	}

	SetActiveSessions(len(sessions))

	counts := make(map[string]int, len(state.States))
	for _, session := range sessions {
		label := "unknown"
		if session != nil {
			label = string(session.State)
			if label == "" {
				label = string(state.StateInit)
			}
		}
		counts[label]++
	}

	sessionsByState.Reset()

	for _, tracked := range state.States {
		label := string(tracked)
		SetSessionsByState(label, counts[label])
		delete(counts, label)
	}

	for label, count := range counts {
		SetSessionsByState(label, count)
	}

	return nil
}
