package store

import (
	"context"
	"errors"
	"time"

	"shoplocal-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateUserParams contains the identity fields captured at session start.
// Validation (non-empty name, well-formed email) happens in the service layer;
// the store only assigns identifiers.
type CreateUserParams struct {
	Name  string
	Email string
}

// Store defines the interface for session and user persistence.
// This allows for mocking in tests and switching between the in-memory and
// postgres backends.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)

	// Session operations
	CreateSession(ctx context.Context, userID int64) (*models.Session, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)

	// AppendMessage appends one turn to the session transcript and bumps the
	// last-activity timestamp. Appends to the same session are serialized so
	// turn order is deterministic and no append is lost; appends to distinct
	// sessions may proceed concurrently. Returns ErrNotFound for unknown
	// sessions.
	AppendMessage(ctx context.Context, sessionID int64, msg models.Message) error

	// MarkDelivered flips the delivered flag. It reports true only for the
	// false->true transition; a second call is a no-op returning false. The
	// flag is never reset.
	MarkDelivered(ctx context.Context, sessionID int64) (bool, error)

	// ListIdleSessions returns undelivered sessions whose last activity is
	// before the cutoff. Used by the idle sweeper.
	ListIdleSessions(ctx context.Context, olderThan time.Time) ([]*models.Session, error)
}
