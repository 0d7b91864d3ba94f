package daemonrun

import (
	"context"
	"os"
	"testing"
	"time"

	"clipforge/internal/testsupport"
)

func TestRunStartsAndStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{}) }()

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(cfg.PIDPath()); err == nil {
			break
		}
		select {
		case err := <-done:
			t.Fatalf("Run returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon never wrote its pid file")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed, stat err=%v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}
