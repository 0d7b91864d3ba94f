package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func TestQueueCommandsOfflineFallback(t *testing.T) {
	env := setupCLITestEnv(t)
	item := seedPending(t, env.store, "sess-offline", 10, 25)

	out, err := env.run(t, "queue", "stats")
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	requireContains(t, out, "Pending")

	out, err = env.run(t, "queue", "list", "--status", "pending")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, item.ID)
	requireContains(t, out, "10.0s-25.0s (15.0s)")

	out, err = env.run(t, "queue", "show", item.ID)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "sess-offline")

	out, err = env.run(t, "queue", "remove", item.ID)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "removed")
	if got, _ := env.store.GetByID(context.Background(), item.ID); got != nil {
		t.Fatalf("expected item to be deleted, got %+v", got)
	}
}

func TestQueueListJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	first := seedPending(t, env.store, "sess-a", 0, 5)
	time.Sleep(5 * time.Millisecond)
	second := seedPending(t, env.store, "sess-b", 1, 6)

	out, err := env.run(t, "queue", "list", "--json")
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var resp api.QueueListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].ID != second.ID || resp.Items[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", resp.Items[0].ID, resp.Items[1].ID)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestQueueRetryOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	item := seedPending(t, env.store, "sess-retry", 0, 4)
	if _, err := env.store.StartProcessing(ctx, item.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if _, err := env.store.FailProcessing(ctx, item.ID, "boom"); err != nil {
		t.Fatalf("FailProcessing: %v", err)
	}

	out, err := env.run(t, "queue", "retry")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 failed items")

	got, err := env.store.GetByID(ctx, item.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending || got.ErrorMessage != "" {
		t.Fatalf("expected clean PENDING item, got %s %q", got.Status, got.ErrorMessage)
	}
}

func TestQueueEndRequiresDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "queue", "end", "missing"); err == nil {
		t.Fatal("expected error without a daemon")
	}
}
