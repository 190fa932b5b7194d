package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"shoplocal-backend/internal/models"
	"shoplocal-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// PostgresStore is the durable Store backend. Session transcripts live in a
// JSONB array column; appends go through a single UPDATE so the row lock
// serializes concurrent turns for the same session.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateUser inserts a new user record and returns it with its assigned id.
func (s *PostgresStore) CreateUser(ctx context.Context, arg store.CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, token)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, token`

	user := &models.User{}
	token := uuid.New()
	err := s.db.QueryRow(ctx, query, arg.Name, arg.Email, token).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Token,
	)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateUser: insert failed for email %s: %v", arg.Email, err)
		return nil, fmt.Errorf("database error creating user: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user by id. Returns store.ErrNotFound if absent.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, name, email, token
		FROM users
		WHERE id = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Token,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching user %d: %w", id, err)
	}

	return user, nil
}

// CreateSession inserts a session with an empty transcript for the given user.
func (s *PostgresStore) CreateSession(ctx context.Context, userID int64) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, messages)
		VALUES ($1, '[]'::jsonb)
		RETURNING id, user_id, messages, created_at, last_activity, delivered`

	sess, err := s.scanSession(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateSession: insert failed for user %d: %v", userID, err)
		return nil, fmt.Errorf("database error creating session: %w", err)
	}

	return sess, nil
}

// GetSession retrieves a session by id. Returns store.ErrNotFound if absent.
func (s *PostgresStore) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	query := `
		SELECT id, user_id, messages, created_at, last_activity, delivered
		FROM sessions
		WHERE id = $1`

	sess, err := s.scanSession(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching session %d: %w", id, err)
	}

	return sess, nil
}

// AppendMessage appends one message to the session's JSONB transcript and
// bumps last_activity. The row-level lock taken by UPDATE serializes
// concurrent appends to the same session.
func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID int64, msg models.Message) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	query := `
		UPDATE sessions
		SET messages = messages || $2::jsonb,
		    last_activity = NOW()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, sessionID, msgJSON)
	if err != nil {
		log.Printf("ERROR [PostgresStore] AppendMessage: update failed for session %d: %v", sessionID, err)
		return fmt.Errorf("database error appending message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

// MarkDelivered flips the delivered flag if it is still false. The conditional
// UPDATE makes the transition atomic under concurrent delivery attempts.
func (s *PostgresStore) MarkDelivered(ctx context.Context, sessionID int64) (bool, error) {
	query := `
		UPDATE sessions
		SET delivered = TRUE
		WHERE id = $1 AND delivered = FALSE`

	tag, err := s.db.Exec(ctx, query, sessionID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] MarkDelivered: update failed for session %d: %v", sessionID, err)
		return false, fmt.Errorf("database error marking session delivered: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Zero rows: either already delivered or the session does not exist.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("database error checking session %d: %w", sessionID, err)
	}
	if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}

// ListIdleSessions returns undelivered sessions whose last activity predates
// the cutoff.
func (s *PostgresStore) ListIdleSessions(ctx context.Context, olderThan time.Time) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, messages, created_at, last_activity, delivered
		FROM sessions
		WHERE delivered = FALSE AND last_activity < $1
		ORDER BY last_activity ASC`

	rows, err := s.db.Query(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("database error listing idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := s.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning idle session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating idle sessions: %w", err)
	}

	return sessions, nil
}

func (s *PostgresStore) scanSession(row pgx.Row) (*models.Session, error) {
	sess := &models.Session{}
	var messagesJSON []byte

	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&messagesJSON,
		&sess.CreatedAt,
		&sess.LastActivity,
		&sess.Delivered,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messagesJSON, &sess.Messages); err != nil {
		return nil, fmt.Errorf("failed to parse session transcript: %w", err)
	}

	return sess, nil
}
