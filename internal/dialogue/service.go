package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
	"github.com/Proton-105/rumor-bot/pkg/logger"
)

const resetLockPoll = 25 * time.Millisecond

// Blocklist tells whether a user must be ignored.
type Blocklist interface {
	IsBlocked(ctx context.Context, userID int64) (bool, error)
}

// ServiceDeps groups the collaborators of a Service. Blocklist and Errors are optional.
type ServiceDeps struct {
	Store      state.Storage
	Locker     state.Locker
	Dispatcher *Dispatcher
	Catalog    *reply.Catalog
	Blocklist  Blocklist
	Errors     *apperrors.Handler
}

// Service is the entry point for transport adapters. It filters inbound
// events, serializes turns per user and persists sessions around RunTurn.
type Service struct {
	store      state.Storage
	locker     state.Locker
	dispatcher *Dispatcher
	catalog    *reply.Catalog
	blocklist  Blocklist
	errors     *apperrors.Handler
	opts       Options
	log        *slog.Logger
	now        func() time.Time
}

func NewService(deps ServiceDeps, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if deps.Locker == nil {
		deps.Locker = state.NewLocalLocker()
	}
	if deps.Errors == nil {
		deps.Errors = apperrors.NewHandler(log, false)
	}

	return &Service{
		store:      deps.Store,
		locker:     deps.Locker,
		dispatcher: deps.Dispatcher,
		catalog:    deps.Catalog,
		blocklist:  deps.Blocklist,
		errors:     deps.Errors,
		opts:       opts.withDefaults(),
		log:        log,
		now:        time.Now,
	}
}

// HandleEvent processes one inbound event of userID and returns the replies to
// deliver, possibly none. Turn failures are answered with an apology and do not
// surface as errors; the returned error reports a locked session or a session
// that could not be loaded or saved.
func (s *Service) HandleEvent(ctx context.Context, userID int64, event state.Event) ([]reply.Message, error) {
	ctx = logger.EnsureCorrelationID(ctx)
	started := s.now()
	composer := s.catalog.Composer(LanguageFromContext(ctx))

	log := s.log.With(
		slog.Int64("user_id", userID),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)

	if s.isBlocked(ctx, log, userID) {
		log.InfoContext(ctx, "ignoring event from blocked user")
		return nil, nil
	}

	if event.Type != state.EventText && event.Type != state.EventPostback {
		return []reply.Message{composer.NotText()}, nil
	}

	if event.Input == ResetCommand {
		return nil, s.reset(ctx, log, userID)
	}

	input := strings.TrimSpace(event.Input)
	if strings.EqualFold(input, s.opts.ContactPhrase) {
		return []reply.Message{composer.Contact()}, nil
	}

	if err := s.locker.Lock(ctx, userID); err != nil {
		return nil, err
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), userID)

	session, err := s.load(ctx, userID)
	if err != nil {
		s.errors.Handle(ctx, err)
		return []reply.Message{composer.Apology()}, err
	}

	if session.State == state.StateInit && utf8.RuneCountInString(input) <= 1 {
		log.DebugContext(ctx, "ignoring single character input")
		return nil, nil
	}

	turnCtx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	outcome := s.dispatcher.RunTurn(turnCtx, userID, session, event, started.UnixMilli())

	if err := s.store.SetSession(ctx, userID, outcome.Session); err != nil {
		appErr := apperrors.NewDatabaseError(err)
		s.errors.Handle(ctx, appErr)
		return outcome.Replies, appErr
	}

	attrs := []slog.Attr{
		slog.String("state_before", string(session.State)),
		slog.String("state_after", string(outcome.Session.State)),
		slog.Int("replies", len(outcome.Replies)),
		slog.Int("auto_advanced", outcome.AutoAdvanced),
		slog.Duration("duration", s.now().Sub(started)),
	}
	if outcome.Err != nil {
		attrs = append(attrs, slog.String("error", outcome.Err.Error()))
	}
	log.LogAttrs(ctx, slog.LevelInfo, "turn handled", attrs...)

	return outcome.Replies, nil
}

func (s *Service) isBlocked(ctx context.Context, log *slog.Logger, userID int64) bool {
	if s.blocklist == nil {
		return false
	}

	blocked, err := s.blocklist.IsBlocked(ctx, userID)
	if err != nil {
		log.WarnContext(ctx, "blocklist lookup failed", slog.String("error", err.Error()))
		return false
	}
	return blocked
}

func (s *Service) load(ctx context.Context, userID int64) (*state.Session, error) {
	session, err := s.store.GetSession(ctx, userID)
	if errors.Is(err, state.ErrSessionNotFound) {
		return &state.Session{}, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if session == nil {
		return &state.Session{}, nil
	}
	return session, nil
}

// reset deletes the session under the user's lock, waiting up to the turn
// timeout for a running turn to save first.
func (s *Service) reset(ctx context.Context, log *slog.Logger, userID int64) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	if err := s.waitLock(waitCtx, userID); err != nil {
		return err
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), userID)

	if err := s.store.DeleteSession(ctx, userID); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	log.InfoContext(ctx, "session reset")
	return nil
}

func (s *Service) waitLock(ctx context.Context, userID int64) error {
	ticker := time.NewTicker(resetLockPoll)
	defer ticker.Stop()

	for {
		err := s.locker.Lock(ctx, userID)
		if !errors.Is(err, state.ErrSessionLocked) {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
