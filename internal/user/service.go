// Package user tracks chat users and decides who is blocked.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rumor-bot/internal/domain"
	"github.com/Proton-105/rumor-bot/internal/repository"
	"github.com/Proton-105/rumor-bot/internal/usercache"
)

// Service provides business operations over users. The repository and cache
// are optional; without a repository only the static blocklist applies.
type Service struct {
	repo   repository.UserRepository
	cache  *usercache.Cache
	static atomic.Pointer[map[int64]struct{}]
	log    *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service instance.
func NewService(repo repository.UserRepository, cache *usercache.Cache, blocklist []int64, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{repo: repo, cache: cache, log: log, now: time.Now}
	s.SetStaticBlocklist(blocklist)
	return s
}

// SetStaticBlocklist replaces the configured blocklist. Safe for concurrent use.
func (s *Service) SetStaticBlocklist(ids []int64) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.static.Store(&set)
}

// GetOrCreate fetches a user by Telegram ID or creates a new profile when missing.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, error) {
	if telegramUser == nil {
		return nil, errors.New("telegram user is nil")
	}
	if s.repo == nil {
		return nil, nil
	}

	if cached, err := s.cache.Get(ctx, telegramUser.ID); err != nil {
		s.logError("get_or_create.cache", telegramUser.ID, err)
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.repo.FindByTelegramID(ctx, telegramUser.ID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logError("get_or_create.find", telegramUser.ID, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		now := s.now().UTC()
		user = &domain.User{
			TelegramID:   telegramUser.ID,
			FirstName:    telegramUser.FirstName,
			Username:     telegramUser.Username,
			LanguageCode: telegramUser.LanguageCode,
			LastActiveAt: now,
			CreatedAt:    now,
		}

		if err := s.repo.Create(ctx, user); err != nil {
			s.logError("get_or_create.create", telegramUser.ID, err)
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.logError("get_or_create.cache_set", telegramUser.ID, err)
	}

	return user, nil
}

// IsBlocked reports whether messages from the user must be ignored.
func (s *Service) IsBlocked(ctx context.Context, telegramID int64) (bool, error) {
	if set := s.static.Load(); set != nil {
		if _, ok := (*set)[telegramID]; ok {
			return true, nil
		}
	}
	if s.repo == nil {
		return false, nil
	}

	if cached, err := s.cache.Get(ctx, telegramID); err != nil {
		s.logError("is_blocked.cache", telegramID, err)
	} else if cached != nil {
		return cached.Blocked, nil
	}

	user, err := s.repo.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.logError("is_blocked.cache_set", telegramID, err)
	}
	return user.Blocked, nil
}

// SetBlocked blocks or unblocks a stored user.
func (s *Service) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	if s.repo == nil {
		return errors.New("user database is not configured")
	}

	if err := s.repo.SetBlocked(ctx, telegramID, blocked); err != nil {
		s.logError("set_blocked", telegramID, err)
		return err
	}

	if err := s.cache.Invalidate(ctx, telegramID); err != nil {
		s.logError("set_blocked.invalidate", telegramID, err)
	}
	return nil
}

// UpdateLastActive refreshes the last_active_at field for the user.
func (s *Service) UpdateLastActive(ctx context.Context, telegramID int64) error {
	if s.repo == nil {
		return nil
	}

	if err := s.repo.UpdateLastActiveAt(ctx, telegramID); err != nil {
		s.logError("update_last_active", telegramID, err)
		return err
	}

	return nil
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
