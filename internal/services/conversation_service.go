package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"shoplocal-backend/internal/crm"
	"shoplocal-backend/internal/interpreter"
	"shoplocal-backend/internal/models"
	"shoplocal-backend/internal/store"
)

// ErrValidation is returned for malformed client input (missing name,
// invalid email, empty message).
var ErrValidation = errors.New("input validation failed")

// Greeting is the fixed assistant prompt appended when a session is created.
const Greeting = "Hi! I'm the Shop Local Assistant. What kind of business can I help you find today?"

// Deliberately loose: just enough to reject obviously broken addresses.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// DirectorySource supplies the current business directory snapshot.
type DirectorySource interface {
	Directory(ctx context.Context) ([]models.BusinessRecord, error)
}

// ConversationService coordinates the conversation lifecycle: it owns the
// per-turn sequence (append, interpret, reply) and the exactly-once CRM
// hand-off when a conversation closes.
type ConversationService struct {
	store     store.Store
	directory DirectorySource
	interp    interpreter.Interpreter
	notifier  crm.Notifier

	// Per-session finalize locks so a closing turn and an idle sweep racing
	// on the same session produce one CRM delivery attempt total.
	mu            sync.Mutex
	finalizeLocks map[int64]*sync.Mutex
}

// NewConversationService creates a new ConversationService.
func NewConversationService(s store.Store, dir DirectorySource, interp interpreter.Interpreter, notifier crm.Notifier) *ConversationService {
	return &ConversationService{
		store:         s,
		directory:     dir,
		interp:        interp,
		notifier:      notifier,
		finalizeLocks: make(map[int64]*sync.Mutex),
	}
}

// StartConversation validates the visitor's identity, creates the user and
// session, and appends the fixed assistant greeting. The returned transcript
// therefore has length one.
func (s *ConversationService) StartConversation(ctx context.Context, name, email string) (*models.StartSessionResponse, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	user, err := s.store.CreateUser(ctx, store.CreateUserParams{Name: name, Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.store.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.store.AppendMessage(ctx, session.ID, models.Message{
		Role:      models.RoleAssistant,
		Content:   Greeting,
		Timestamp: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to append greeting: %w", err)
	}

	log.Printf("[ConversationService] Started session %d for user %d (%s)", session.ID, user.ID, email)
	return &models.StartSessionResponse{SessionID: session.ID, UserID: user.ID}, nil
}

// HandleMessage processes one inbound user turn: append it, interpret it
// against the directory snapshot and prior transcript, append the reply, and
// finalize the session when closing intent is detected.
//
// A downstream failure after the user turn is appended propagates without
// rollback, so a retry by the user continues the transcript rather than
// duplicating the turn. A message arriving after closure is accepted and
// processed as a normal turn; the transcript is not re-delivered.
func (s *ConversationService) HandleMessage(ctx context.Context, sessionID int64, text string) (*models.SendMessageResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	// Prior transcript, before this turn, for contextual follow-ups.
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prior := session.Messages

	if err := s.store.AppendMessage(ctx, sessionID, models.Message{
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}

	snapshot, err := s.directory.Directory(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.interp.Interpret(ctx, text, snapshot, prior)
	if err != nil {
		return nil, err
	}
	interpreter.Finalize(result)

	if err := s.store.AppendMessage(ctx, sessionID, models.Message{
		Role:      models.RoleAssistant,
		Content:   result.Reply,
		Timestamp: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}

	if result.IsClosing {
		// A hand-off failure here must not fail the turn the user just saw
		// succeed: the delivered flag stays unset and the idle sweeper
		// retries the delivery later.
		if err := s.FinalizeSession(ctx, sessionID); err != nil {
			log.Printf("WARN [ConversationService] CRM hand-off for session %d failed, leaving for sweeper: %v", sessionID, err)
		}
	}

	resp := &models.SendMessageResponse{
		Message:         result.Reply,
		MultipleMatches: len(result.Matches) > 1,
		MatchCount:      len(result.Matches),
		IsClosing:       result.IsClosing,
	}
	if len(result.Matches) == 1 {
		resp.Business = &result.Matches[0]
	}
	return resp, nil
}

// GetConversation returns the full session including its transcript.
func (s *ConversationService) GetConversation(ctx context.Context, sessionID int64) (*models.SessionResponse, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &models.SessionResponse{
		ID:           session.ID,
		UserID:       session.UserID,
		Messages:     session.Messages,
		CreatedAt:    session.CreatedAt,
		LastActivity: session.LastActivity,
		Delivered:    session.Delivered,
	}, nil
}

// FinalizeSession hands the session's transcript off to the CRM exactly once.
// The delivered flag is only set after a successful delivery; setting it first
// would lose the transcript permanently on a failed send.
func (s *ConversationService) FinalizeSession(ctx context.Context, sessionID int64) error {
	lock := s.finalizeLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Delivered {
		return nil
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to load session owner: %w", err)
	}

	if err := s.notifier.Deliver(ctx, user, session.Messages); err != nil {
		return err
	}

	if _, err := s.store.MarkDelivered(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to mark session delivered: %w", err)
	}

	log.Printf("[ConversationService] Session %d delivered to CRM", sessionID)
	return nil
}

func (s *ConversationService) finalizeLock(sessionID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.finalizeLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.finalizeLocks[sessionID] = lock
	}
	return lock
}
