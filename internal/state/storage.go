// Package state holds the conversation session model and its persistence.
package state

import (
	"context"
	"errors"
)

// ErrSessionNotFound indicates that no session is stored for the user.
var ErrSessionNotFound = errors.New("session not found")

// Storage defines the persistence contract for conversation sessions.
type Storage interface {
	// GetSession returns the stored session or ErrSessionNotFound.
	GetSession(ctx context.Context, userID int64) (*Session, error)
	// SetSession replaces the stored session for the user.
	SetSession(ctx context.Context, userID int64, session *Session) error
	// DeleteSession removes the stored session for the user.
	DeleteSession(ctx context.Context, userID int64) error
}

// Lister is implemented by storages that can enumerate every stored session.
type Lister interface {
	GetAllSessions(ctx context.Context) (map[int64]*Session, error)
}
