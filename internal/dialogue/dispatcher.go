package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/rumor-bot/internal/dialogue/handlers"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
	"github.com/Proton-105/rumor-bot/pkg/metrics"
)

// Outcome is the result of one turn. Err is set when the turn failed; Session
// and Replies then hold the reset session and the apology.
type Outcome struct {
	Session      *state.Session
	Replies      []reply.Message
	Err          error
	AutoAdvanced int
}

// Dispatcher drives the state machine for one turn.
type Dispatcher struct {
	handlers       handlers.Registry
	fallback       handlers.Handler
	catalog        *reply.Catalog
	errors         *apperrors.Handler
	maxAutoAdvance int
	log            *slog.Logger
}

func NewDispatcher(
	registry handlers.Registry,
	catalog *reply.Catalog,
	errHandler *apperrors.Handler,
	opts Options,
	log *slog.Logger,
) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if errHandler == nil {
		errHandler = apperrors.NewHandler(log, false)
	}
	opts = opts.withDefaults()

	return &Dispatcher{
		handlers:       registry,
		fallback:       handlers.NewFallbackHandler(),
		catalog:        catalog,
		errors:         errHandler,
		maxAutoAdvance: opts.MaxAutoAdvance,
		log:            log,
	}
}

// RunTurn feeds event to the handler of the session's state and returns the
// next session with the replies to send. The given session is not modified.
// issuedAt is the unix time in milliseconds stamped on a changed state.
func (d *Dispatcher) RunTurn(ctx context.Context, userID int64, session *state.Session, event state.Event, issuedAt int64) Outcome {
	started := time.Now()

	prev := session.Clone()
	if prev == nil {
		prev = &state.Session{}
	}

	current := prev.State
	if current == "" {
		current = state.StateInit
	}

	composer := d.catalog.Composer(LanguageFromContext(ctx))
	params := handlers.Params{
		Data:     prev.Data,
		State:    current,
		Event:    event,
		IssuedAt: prev.IssuedAt,
		UserID:   userID,
		Reply:    composer,
	}

	var (
		result   handlers.Result
		advanced int
	)
	for {
		var err error
		result, err = d.step(ctx, params)
		if err != nil {
			metrics.RecordTurn(string(current), "error", time.Since(started))
			return d.fail(ctx, userID, prev, composer, err, issuedAt)
		}

		if result.State != params.State {
			state.RecordTransition(params.State, result.State)
		}

		if !result.SkipUser || advanced >= d.maxAutoAdvance {
			break
		}

		advanced++
		metrics.RecordAutoAdvance()
		d.log.DebugContext(ctx, "auto advancing turn",
			slog.Int64("user_id", userID),
			slog.String("state", string(result.State)),
			slog.String("input", result.Event.Input),
		)

		params.Data = result.Data
		params.State = result.State
		params.Event = result.Event
	}

	next := &state.Session{
		State:    result.State,
		Data:     result.Data,
		IssuedAt: prev.IssuedAt,
	}
	if next.State != prev.State {
		next.IssuedAt = issuedAt
	}

	metrics.RecordTurn(string(current), "ok", time.Since(started))

	return Outcome{
		Session:      next,
		Replies:      result.Replies,
		AutoAdvanced: advanced,
	}
}

func (d *Dispatcher) step(ctx context.Context, p handlers.Params) (handlers.Result, error) {
	handler, ok := d.handlers[p.State]
	if !ok {
		d.log.WarnContext(ctx, "no handler for state", slog.String("state", string(p.State)))
		handler = d.fallback
	}

	result, err := handler(ctx, p)
	if err != nil {
		if errors.Is(err, state.ErrMissingData) {
			return handlers.Result{}, violation(err)
		}
		return handlers.Result{}, err
	}

	if result.State == "" {
		result.State = state.StateInit
	}
	if !result.State.Known() {
		return handlers.Result{}, violation(fmt.Errorf("unknown next state %q", result.State))
	}
	if ok && !state.IsTransitionAllowed(p.State, result.State) {
		return handlers.Result{}, violation(fmt.Errorf("transition %s -> %s is not allowed", p.State, result.State))
	}
	if err := result.Data.Require(result.State); err != nil {
		return handlers.Result{}, violation(err)
	}

	return result, nil
}

func (d *Dispatcher) fail(ctx context.Context, userID int64, prev *state.Session, composer *reply.Composer, err error, issuedAt int64) Outcome {
	d.errors.Handle(ctx, err)
	metrics.RecordError(apperrors.CodeOf(err), string(apperrors.SeverityOf(err)))

	d.log.WarnContext(ctx, "turn failed, session reset",
		slog.Int64("user_id", userID),
		slog.String("state", string(prev.State)),
	)

	next := &state.Session{State: state.StateInit, IssuedAt: prev.IssuedAt}
	if prev.State != state.StateInit {
		next.IssuedAt = issuedAt
	}

	return Outcome{
		Session: next,
		Replies: []reply.Message{composer.Apology()},
		Err:     err,
	}
}

func violation(cause error) error {
	return apperrors.NewStateError("dialogue contract violation", fmt.Errorf("%w: %w", ErrContractViolation, cause))
}
