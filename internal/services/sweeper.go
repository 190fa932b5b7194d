package services

import (
	"context"
	"log"
	"time"

	"shoplocal-backend/internal/store"
)

// Sweeper periodically finalizes sessions that went idle without an explicit
// closing signal, driving the same CRM hand-off path as a closing turn.
type Sweeper struct {
	store         store.Store
	conversations *ConversationService
	interval      time.Duration
	idleAfter     time.Duration
}

// NewSweeper creates an idle sweeper. interval is how often a pass runs;
// idleAfter is how long a session must be inactive before it is finalized.
func NewSweeper(s store.Store, conversations *ConversationService, interval, idleAfter time.Duration) *Sweeper {
	return &Sweeper{
		store:         s,
		conversations: conversations,
		interval:      interval,
		idleAfter:     idleAfter,
	}
}

// Start runs the sweep loop in a background goroutine until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		log.Printf("[Sweeper] Started (interval=%s, idle threshold=%s)", s.interval, s.idleAfter)

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				log.Printf("[Sweeper] Shutting down: %v", ctx.Err())
				return
			}
		}
	}()
}

// RunOnce performs a single sweep pass. A failure for one session is logged
// and must not abort the sweep of the others.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.idleAfter)

	idle, err := s.store.ListIdleSessions(ctx, cutoff)
	if err != nil {
		log.Printf("ERROR [Sweeper] Failed to list idle sessions: %v", err)
		return
	}
	if len(idle) == 0 {
		return
	}

	log.Printf("[Sweeper] Found %d idle sessions to finalize", len(idle))
	for _, session := range idle {
		if err := s.conversations.FinalizeSession(ctx, session.ID); err != nil {
			log.Printf("WARN [Sweeper] Failed to finalize session %d: %v", session.ID, err)
		}
	}
}
