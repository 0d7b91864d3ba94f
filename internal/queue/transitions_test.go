package queue_test

import (
	"testing"

	"clipforge/internal/queue"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]queue.Status]bool{
		{queue.StatusRecording, queue.StatusPending}:    true,
		{queue.StatusPending, queue.StatusProcessing}:   true,
		{queue.StatusProcessing, queue.StatusCompleted}: true,
		{queue.StatusProcessing, queue.StatusFailed}:    true,
		{queue.StatusProcessing, queue.StatusPending}:   true,
		{queue.StatusFailed, queue.StatusPending}:       true,
	}
	for _, from := range queue.AllStatuses() {
		for _, to := range queue.AllStatuses() {
			want := allowed[[2]queue.Status{from, to}]
			if got := queue.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" failed "); !ok || status != queue.StatusFailed {
		t.Fatalf("unexpected parse result %q %v", status, ok)
	}
	if _, ok := queue.ParseStatus("review"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
