// Package repository persists users in Postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/rumor-bot/internal/domain"
)

// ErrUserNotFound is returned when no user has the given Telegram id.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	UpdateLastActiveAt(ctx context.Context, telegramID int64) error
	SetBlocked(ctx context.Context, telegramID int64, blocked bool) error
	ListBlocked(ctx context.Context) ([]int64, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByTelegramID retrieves a user by their Telegram identifier.
func (r *userRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	const query = `
		SELECT id, telegram_id, first_name, username, language_code, blocked, last_active_at, created_at
		FROM users
		WHERE telegram_id = $1
	`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.FirstName,
		&user.Username,
		&user.LanguageCode,
		&user.Blocked,
		&user.LastActiveAt,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		r.log.Error("failed to fetch user by telegram id", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return nil, fmt.Errorf("select user by telegram id: %w", err)
	}

	return &user, nil
}

// Create persists a new user and fills its id. A concurrent insert of the
// same Telegram user is not an error.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (telegram_id, first_name, username, language_code, last_active_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_id) DO UPDATE SET last_active_at = EXCLUDED.last_active_at
		RETURNING id, blocked
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.TelegramID,
		user.FirstName,
		user.Username,
		user.LanguageCode,
		user.LastActiveAt,
		user.CreatedAt,
	).Scan(&user.ID, &user.Blocked)
	if err != nil {
		r.log.Error("failed to create user", slog.Int64("telegram_id", user.TelegramID), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// UpdateLastActiveAt stamps the user's latest activity.
func (r *userRepository) UpdateLastActiveAt(ctx context.Context, telegramID int64) error {
	const query = `UPDATE users SET last_active_at = NOW() WHERE telegram_id = $1`

	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("update last active: %w", err)
	}
	return nil
}

// SetBlocked blocks or unblocks a user.
func (r *userRepository) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	const query = `UPDATE users SET blocked = $2 WHERE telegram_id = $1`

	res, err := r.db.ExecContext(ctx, query, telegramID, blocked)
	if err != nil {
		return fmt.Errorf("update blocked: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListBlocked returns the Telegram ids of all blocked users.
func (r *userRepository) ListBlocked(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT telegram_id FROM users WHERE blocked ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("list blocked users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blocked user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
