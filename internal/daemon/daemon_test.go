package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/autoclip"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

// recordingHandler reports each claimed item and then fails it.
type recordingHandler struct {
	seen chan string
}

func (recordingHandler) Name() string { return "recording" }

func (h recordingHandler) Process(_ context.Context, item *queue.Item) (*queue.Clip, error) {
	select {
	case h.seen <- item.ID:
	default:
	}
	return nil, errors.New("not processed in tests")
}

type fixture struct {
	cfg     *config.Config
	store   *queue.Store
	handler recordingHandler
	daemon  *daemon.Daemon
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return &fixture{cfg: cfg, store: store, handler: recordingHandler{seen: make(chan string, 8)}}
}

func (f *fixture) build(t *testing.T) *daemon.Daemon {
	t.Helper()
	hub := notifications.NewHub()
	manager := autoclip.New(f.store, hub, autoclip.WithDefaults(queue.TriggerConfig{
		Workflow:         "default",
		AudioEnabled:     true,
		VisualEnabled:    true,
		AutoClipEnabled:  true,
		AutoClipDuration: 3600,
	}))
	wf := workflow.NewManager(f.cfg, f.store, f.handler, hub, nil)
	d, err := daemon.New(f.cfg, f.store, nil, daemon.Components{AutoClip: manager, Workflow: wf, Hub: hub})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil, daemon.Components{}); err == nil {
		t.Fatal("expected error without store and managers")
	}
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	d := f.build(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to be running")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	client := api.NewClient(api.BaseURL(d.APIAddress()), 5*time.Second)
	health, err := client.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" || !health.DBOK {
		t.Fatalf("unexpected health %+v", health)
	}
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	d.Stop()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if _, err := api.NewClient(api.BaseURL(d.APIAddress()), 5*time.Second).Health(ctx); err != nil {
		t.Fatalf("Health after restart: %v", err)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	f := newFixture(t)
	first := f.build(t)
	second := f.build(t)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestStartResetsInterruptedProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := testsupport.NewSession(t, f.store, "default", "/recordings/a.mkv")
	item := testsupport.NewPendingItem(t, f.store, session.ID, 1, 5)
	if _, err := f.store.StartProcessing(ctx, item.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}

	d := f.build(t)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case id := <-f.handler.seen:
		if id != item.ID {
			t.Fatalf("expected %s to be reprocessed, got %s", item.ID, id)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("interrupted item was never reclaimed")
	}
}

func TestRecordingClipsSurviveRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := testsupport.NewSession(t, f.store, "default", "")
	item, err := f.store.CreateRecording(ctx, queue.NewItem{
		SessionID:   session.ID,
		TriggerType: queue.TriggerAudio,
		T0:          42,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	d := f.build(t)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status(ctx)
	if len(status.ActiveClips) != 1 || status.ActiveClips[0].ItemID != item.ID {
		t.Fatalf("expected rehydrated clip, got %+v", status.ActiveClips)
	}

	d.Stop()
	stored, err := f.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusRecording {
		t.Fatalf("expected RECORDING after stop, got %s", stored.Status)
	}
	if len(d.Status(ctx).ActiveClips) != 0 {
		t.Fatal("working set should be released on stop")
	}
}
