package memory

import (
	"context"
	"sync"
	"time"

	"shoplocal-backend/internal/models"
	"shoplocal-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure MemoryStore implements store.Store
var _ store.Store = (*MemoryStore)(nil)

// sessionRecord wraps a session with its own append lock so that concurrent
// turns for the same session serialize without blocking other sessions.
type sessionRecord struct {
	mu      sync.Mutex
	session models.Session
}

// MemoryStore is the in-process Store backend. Identifiers are monotonically
// increasing integers; all state is lost with the process.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[int64]*models.User
	sessions      map[int64]*sessionRecord
	nextUserID    int64
	nextSessionID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]*models.User),
		sessions:      make(map[int64]*sessionRecord),
		nextUserID:    1,
		nextSessionID: 1,
	}
}

// CreateUser assigns the next user id and an opaque token.
func (s *MemoryStore) CreateUser(_ context.Context, arg store.CreateUserParams) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &models.User{
		ID:    s.nextUserID,
		Name:  arg.Name,
		Email: arg.Email,
		Token: uuid.New(),
	}
	s.nextUserID++
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

// GetUser retrieves a user by id. Returns store.ErrNotFound if absent.
func (s *MemoryStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// CreateSession assigns the next session id with an empty transcript.
func (s *MemoryStore) CreateSession(_ context.Context, userID int64) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}

	now := time.Now()
	rec := &sessionRecord{
		session: models.Session{
			ID:           s.nextSessionID,
			UserID:       userID,
			Messages:     []models.Message{},
			CreatedAt:    now,
			LastActivity: now,
		},
	}
	s.nextSessionID++
	s.sessions[rec.session.ID] = rec

	return rec.snapshot(), nil
}

// GetSession retrieves a session by id. Returns store.ErrNotFound if absent.
func (s *MemoryStore) GetSession(_ context.Context, id int64) (*models.Session, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), nil
}

// AppendMessage appends a message and updates last activity. Appends for the
// same session serialize on the session's lock.
func (s *MemoryStore) AppendMessage(_ context.Context, sessionID int64, msg models.Message) error {
	rec, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.session.Messages = append(rec.session.Messages, msg)
	rec.session.LastActivity = time.Now()
	return nil
}

// MarkDelivered flips the delivered flag, reporting whether this call made the
// transition. Idempotent under concurrent delivery attempts.
func (s *MemoryStore) MarkDelivered(_ context.Context, sessionID int64) (bool, error) {
	rec, err := s.lookup(sessionID)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.session.Delivered {
		return false, nil
	}
	rec.session.Delivered = true
	return true, nil
}

// ListIdleSessions returns undelivered sessions idle since before the cutoff.
func (s *MemoryStore) ListIdleSessions(_ context.Context, olderThan time.Time) ([]*models.Session, error) {
	s.mu.RLock()
	recs := make([]*sessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	var idle []*models.Session
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.session.Delivered && rec.session.LastActivity.Before(olderThan) {
			idle = append(idle, rec.snapshot())
		}
		rec.mu.Unlock()
	}
	return idle, nil
}

func (s *MemoryStore) lookup(id int64) (*sessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

// snapshot copies the session so callers never share the live message slice.
// Callers must hold rec.mu, except right after creation.
func (r *sessionRecord) snapshot() *models.Session {
	copied := r.session
	copied.Messages = make([]models.Message, len(r.session.Messages))
	copy(copied.Messages, r.session.Messages)
	return &copied
}
