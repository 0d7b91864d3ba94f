package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates a capture session bound to the given workflow.
func NewSession(t testing.TB, store *queue.Store, workflow, sourcePath string) *queue.Session {
	t.Helper()

	session, err := store.CreateSession(context.Background(), queue.Session{
		ID:         uuid.NewString(),
		Workflow:   workflow,
		SourcePath: sourcePath,
	})
	if err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}

// NewPendingItem creates a RECORDING item for session and ends it at t1 so it
// is ready for the processor.
func NewPendingItem(t testing.TB, store *queue.Store, sessionID string, t0, t1 float64) *queue.Item {
	t.Helper()

	ctx := context.Background()
	item, err := store.CreateRecording(ctx, queue.NewItem{
		SessionID:     sessionID,
		TriggerType:   queue.TriggerManual,
		TriggerSource: "manual",
		T0:            t0,
	})
	if err != nil {
		t.Fatalf("store.CreateRecording: %v", err)
	}
	item, err = store.EndRecording(ctx, item.ID, t1)
	if err != nil {
		t.Fatalf("store.EndRecording: %v", err)
	}
	return item
}
