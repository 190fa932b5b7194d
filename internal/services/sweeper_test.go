package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"shoplocal-backend/internal/interpreter"
	"shoplocal-backend/internal/models"
	"shoplocal-backend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selectiveNotifier counts every delivery attempt and fails for the scripted
// user name.
type selectiveNotifier struct {
	attempts atomic.Int32
	failFor  string
}

func (n *selectiveNotifier) Deliver(_ context.Context, user *models.User, _ []models.Message) error {
	n.attempts.Add(1)
	if user.Name == n.failFor {
		return interpreter.ErrInterpretation // any error will do
	}
	return nil
}

func TestSweeperFinalizesIdleSessions(t *testing.T) {
	st := memory.NewMemoryStore()
	notifier := &countingNotifier{}
	svc := NewConversationService(st, &stubDirectory{records: plumbingDirectory},
		replyWith(&interpreter.Result{Reply: "ok"}), notifier)
	sweeper := NewSweeper(st, svc, time.Minute, time.Millisecond)

	ctx := context.Background()
	first := startSession(t, svc)
	second := startSession(t, svc)

	// Let both sessions pass the idle threshold.
	time.Sleep(10 * time.Millisecond)

	sweeper.RunOnce(ctx)

	assert.Equal(t, int32(2), notifier.deliveries.Load())
	for _, id := range []int64{first.SessionID, second.SessionID} {
		sess, err := st.GetSession(ctx, id)
		require.NoError(t, err)
		assert.True(t, sess.Delivered)
	}

	// A second sweep must not re-deliver.
	sweeper.RunOnce(ctx)
	assert.Equal(t, int32(2), notifier.deliveries.Load())
}

func TestSweeperSkipsActiveSessions(t *testing.T) {
	st := memory.NewMemoryStore()
	notifier := &countingNotifier{}
	svc := NewConversationService(st, &stubDirectory{records: plumbingDirectory},
		replyWith(&interpreter.Result{Reply: "ok"}), notifier)
	sweeper := NewSweeper(st, svc, time.Minute, time.Hour)

	startSession(t, svc)

	sweeper.RunOnce(context.Background())

	assert.Equal(t, int32(0), notifier.deliveries.Load())
}

func TestSweeperIsolatesPerSessionFailures(t *testing.T) {
	st := memory.NewMemoryStore()
	notifier := &selectiveNotifier{failFor: "Flaky Visitor"}
	svc := NewConversationService(st, &stubDirectory{records: plumbingDirectory},
		replyWith(&interpreter.Result{Reply: "ok"}), notifier)
	sweeper := NewSweeper(st, svc, time.Minute, time.Millisecond)

	ctx := context.Background()
	_, err := svc.StartConversation(ctx, "Flaky Visitor", "flaky@x.com")
	require.NoError(t, err)
	healthy, err := svc.StartConversation(ctx, "Jane Doe", "jane@x.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	// One bad session must not stop the sweep of the others.
	sweeper.RunOnce(ctx)

	assert.Equal(t, int32(2), notifier.attempts.Load())
	sess, err := st.GetSession(ctx, healthy.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.Delivered)
}

func TestSweeperStartStopsOnCancel(t *testing.T) {
	st := memory.NewMemoryStore()
	svc := NewConversationService(st, &stubDirectory{records: plumbingDirectory},
		replyWith(&interpreter.Result{Reply: "ok"}), &countingNotifier{})
	sweeper := NewSweeper(st, svc, 5*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	// The loop exits on cancellation; nothing to assert beyond not hanging.
	time.Sleep(10 * time.Millisecond)
}
