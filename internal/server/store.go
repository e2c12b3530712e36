package server

import (
	"context"
	"errors"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict means the stored state changed between read and
	// write. Modify callers retry on it.
	ErrVersionConflict = errors.New("state changed concurrently")
	// ErrUnavailable is reported to clients whenever the store fails.
	ErrUnavailable = errors.New("state store unavailable, please retry")
)

// stateID is the primary key of the single shared session row.
const stateID = "global"

// StateStore persists the one shared GameState. Every state it returns has
// been normalized against the store's rules.
type StateStore interface {
	// Load returns the current state, creating a fresh one if none exists.
	Load(ctx context.Context) (luckydraw.GameState, error)
	// Save replaces the state unconditionally.
	Save(ctx context.Context, s luckydraw.GameState) (luckydraw.GameState, error)
	// Modify reads the state, applies fn and writes the result atomically.
	// If fn returns an error nothing is written and the error is returned as
	// is. A concurrent writer yields ErrVersionConflict.
	Modify(ctx context.Context, fn func(*luckydraw.GameState) error) (luckydraw.GameState, error)
}

const (
	rolePlayer = "player"
	roleAdmin  = "admin"
)

type authSession struct {
	Role   string
	Member string
}

// SessionStore keeps bearer and cookie sessions for players and the admin.
type SessionStore interface {
	CreateSession(ctx context.Context, role, member string) (token string, err error)
	SessionFromToken(ctx context.Context, token string) (authSession, error)
	DeleteSession(ctx context.Context, token string) error
}

// Store is everything the HTTP layer persists.
type Store interface {
	StateStore
	SessionStore
}
