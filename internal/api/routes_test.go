package api

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/autoclip"
	"clipforge/internal/export"
	"clipforge/internal/media/convert"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type idleHandler struct{}

func (idleHandler) Name() string { return "idle" }

func (idleHandler) Process(context.Context, *queue.Item) (*queue.Clip, error) {
	return nil, errors.New("not used")
}

type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, opts convert.Options) (convert.Result, error) {
	return convert.Result{OutputPath: opts.OutputPath, Format: opts.Format, FileSize: 1024, Duration: 12}, nil
}

type apiHarness struct {
	store  *queue.Store
	hub    *notifications.Hub
	client *Client
	url    string
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	hub := notifications.NewHub()
	clips := autoclip.New(store, hub, autoclip.WithDefaults(queue.TriggerConfig{
		Workflow:         "default",
		AudioEnabled:     true,
		VisualEnabled:    true,
		AutoClipEnabled:  false,
		AutoClipDuration: 60,
	}))
	wf := workflow.NewManager(cfg, store, idleHandler{}, hub, nil)

	ts := httptest.NewServer(NewRouter(ServerConfig{
		Store:     store,
		AutoClip:  clips,
		Workflow:  wf,
		Optimizer: export.New(stubConverter{}, nil, nil, 2),
		Hub:       hub,
		StartTime: time.Now(),
		KeepAlive: time.Hour,
	}))
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return &apiHarness{store: store, hub: hub, client: NewClient(ts.URL, 5*time.Second), url: ts.URL}
}

func (h *apiHarness) startSession(t *testing.T) *Session {
	t.Helper()
	session, err := h.client.StartSession(context.Background(), StartSessionRequest{SourcePath: "/recordings/stream.mkv"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return session
}

func TestHealthReportsDatabase(t *testing.T) {
	h := newAPIHarness(t)
	health, err := h.client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" || !health.DBOK {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newAPIHarness(t)
	resp, err := http.Get(h.url + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestManualTriggerCreatesRecording(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	session := h.startSession(t)
	if session.Workflow != "default" {
		t.Fatalf("expected default workflow, got %q", session.Workflow)
	}

	resp, err := h.client.Trigger(ctx, session.ID, TriggerRequest{Kind: "button", T: 100})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !resp.Accepted || resp.Item == nil {
		t.Fatalf("expected accepted trigger, got %#v", resp)
	}
	if resp.Item.Status != "RECORDING" || resp.Item.Trigger != "button" || resp.Item.TriggerConfidence != nil {
		t.Fatalf("unexpected item: %#v", resp.Item)
	}

	second, err := h.client.Trigger(ctx, session.ID, TriggerRequest{Kind: "button", T: 105})
	if err != nil {
		t.Fatalf("second Trigger: %v", err)
	}
	if second.Accepted {
		t.Fatal("expected second trigger to be ignored while recording")
	}

	t1 := 130.0
	ended, err := h.client.EndClip(ctx, resp.Item.ID, &t1)
	if err != nil {
		t.Fatalf("EndClip: %v", err)
	}
	if !ended.Ended || ended.Item.Status != "PENDING" || ended.Item.T1 == nil || *ended.Item.T1 != 130 {
		t.Fatalf("unexpected end response: %#v", ended)
	}

	_, err = h.client.EndClip(ctx, resp.Item.ID, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected 409 ending a pending item, got %v", err)
	}
}

func TestVoiceTriggerIgnoredWhenAutoClipDisabled(t *testing.T) {
	h := newAPIHarness(t)
	session := h.startSession(t)
	confidence := 0.9
	resp, err := h.client.Trigger(context.Background(), session.ID, TriggerRequest{Kind: "voice", Label: "clip that", Confidence: &confidence, T: 12})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if resp.Accepted {
		t.Fatalf("expected voice trigger to be ignored, got %#v", resp)
	}
}

func TestTriggerValidation(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	_, err := h.client.Trigger(ctx, "missing-session", TriggerRequest{Kind: "button", T: 1})
	if !IsNotFound(err) {
		t.Fatalf("expected 404 for unknown session, got %v", err)
	}

	session := h.startSession(t)
	_, err = h.client.Trigger(ctx, session.ID, TriggerRequest{Kind: "wave", T: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Code != "INVALID_TRIGGER" {
		t.Fatalf("expected INVALID_TRIGGER, got %v", err)
	}
}

func TestTriggerConfigRoundTrip(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()

	initial, err := h.client.TriggerConfig(ctx, "default")
	if err != nil {
		t.Fatalf("TriggerConfig: %v", err)
	}
	if initial.AutoClipEnabled {
		t.Fatal("expected harness defaults with auto-clip disabled")
	}

	updated, err := h.client.SetTriggerConfig(ctx, "default", TriggerConfig{
		AudioEnabled:     true,
		VisualEnabled:    false,
		AutoClipEnabled:  true,
		AutoClipDuration: 45,
	})
	if err != nil {
		t.Fatalf("SetTriggerConfig: %v", err)
	}
	if !updated.AutoClipEnabled || updated.AutoClipDuration != 45 || updated.Workflow != "default" {
		t.Fatalf("unexpected updated config: %#v", updated)
	}

	session := h.startSession(t)
	confidence := 0.8
	resp, err := h.client.Trigger(ctx, session.ID, TriggerRequest{Kind: "voice", Label: "clip it", Confidence: &confidence, T: 5})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !resp.Accepted {
		t.Fatal("expected voice trigger accepted after enabling auto-clip")
	}
	if resp.Item.TriggerConfidence == nil || *resp.Item.TriggerConfidence != 0.8 {
		t.Fatalf("unexpected confidence: %#v", resp.Item.TriggerConfidence)
	}
	if _, err := h.client.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
}

func TestCancelAndRetry(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	session := testsupport.NewSession(t, h.store, "default", "/recordings/a.mkv")

	pending := testsupport.NewPendingItem(t, h.store, session.ID, 0, 10)
	if err := h.client.CancelClip(ctx, pending.ID); err != nil {
		t.Fatalf("CancelClip: %v", err)
	}
	if _, err := h.client.GetItem(ctx, pending.ID); !IsNotFound(err) {
		t.Fatalf("expected cancelled item to be gone, got %v", err)
	}

	failed := testsupport.NewPendingItem(t, h.store, session.ID, 20, 30)
	if _, err := h.store.StartProcessing(ctx, failed.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if _, err := h.store.FailProcessing(ctx, failed.ID, "ffmpeg exited 1"); err != nil {
		t.Fatalf("FailProcessing: %v", err)
	}
	items, err := h.client.ListQueue(ctx, "failed")
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(items) != 1 || items[0].ErrorMessage != "ffmpeg exited 1" {
		t.Fatalf("unexpected failed items: %#v", items)
	}

	retried, err := h.client.Retry(ctx, failed.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != "PENDING" || retried.ErrorMessage != "" {
		t.Fatalf("unexpected retried item: %#v", retried)
	}

	_, err = h.client.Retry(ctx, failed.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected 409 retrying a pending item, got %v", err)
	}

	stats, err := h.client.QueueStats(ctx)
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats["PENDING"] != 1 || stats["FAILED"] != 0 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestListQueueRejectsUnknownStatus(t *testing.T) {
	h := newAPIHarness(t)
	_, err := h.client.ListQueue(context.Background(), "bogus")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "INVALID_STATUS" {
		t.Fatalf("expected INVALID_STATUS, got %v", err)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	session := h.startSession(t)
	item := testsupport.NewPendingItem(t, h.store, session.ID, 0, 5)

	if err := h.client.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := h.client.GetItem(ctx, item.ID); !IsNotFound(err) {
		t.Fatalf("expected item removed with session, got %v", err)
	}
	if err := h.client.DeleteSession(ctx, session.ID); !IsNotFound(err) {
		t.Fatalf("expected 404 deleting twice, got %v", err)
	}
}

func TestExportClip(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	session := testsupport.NewSession(t, h.store, "default", "/recordings/a.mkv")
	item := testsupport.NewPendingItem(t, h.store, session.ID, 0, 5)
	clipPath := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, clipPath, 2048)
	clip, err := h.store.CreateClip(ctx, queue.Clip{SessionID: session.ID, QueueItemID: item.ID, Path: clipPath, Duration: 5, FileSize: 2048})
	if err != nil {
		t.Fatalf("CreateClip: %v", err)
	}

	resp, err := h.client.ExportClip(ctx, clip.ID, ExportRequest{Platforms: []string{"tiktok", "myspace"}})
	if err != nil {
		t.Fatalf("ExportClip: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %#v", resp.Results)
	}
	tiktok := resp.Results[0]
	if tiktok.Platform != "TIKTOK" || tiktok.Format != "mp4" || tiktok.AspectRatio != "9:16" || tiktok.Error != "" {
		t.Fatalf("unexpected tiktok result: %#v", tiktok)
	}
	if !strings.HasSuffix(tiktok.OutputPath, "clip_tiktok.mp4") {
		t.Fatalf("unexpected output path %q", tiktok.OutputPath)
	}
	if _, err := os.Stat(filepath.Dir(tiktok.OutputPath)); err != nil {
		t.Fatalf("expected export dir created: %v", err)
	}
	if resp.Results[1].ErrorKind != string(convert.KindUnknownPlatform) {
		t.Fatalf("expected unknown platform error, got %#v", resp.Results[1])
	}

	_, err = h.client.ExportClip(ctx, clip.ID, ExportRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty platforms, got %v", err)
	}
	if _, err := h.client.ExportClip(ctx, "missing", ExportRequest{Platforms: []string{"youtube"}}); !IsNotFound(err) {
		t.Fatalf("expected 404 for unknown clip, got %v", err)
	}
}

func TestEventStreamDeliversEnvelopes(t *testing.T) {
	h := newAPIHarness(t)
	session := h.startSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url+"/api/events?sessionId="+session.ID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": connected") {
		t.Fatalf("expected connected comment, got %q (%v)", line, err)
	}

	if _, err := h.client.Trigger(context.Background(), session.ID, TriggerRequest{Kind: "button", T: 3}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	var events []string
	for len(events) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v (events so far %v)", err, events)
		}
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "event: "); ok {
			events = append(events, name)
		}
	}
	if events[0] != string(notifications.TypeClipIntentStart) || events[1] != string(notifications.TypeClipQueueUpdated) {
		t.Fatalf("unexpected event order %v", events)
	}
}

func TestStatusIncludesActiveClips(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	session := h.startSession(t)
	if _, err := h.client.Trigger(ctx, session.ID, TriggerRequest{Kind: "button", T: 7}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	status, err := h.client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.ActiveClips) != 1 || status.ActiveClips[0].SessionID != session.ID {
		t.Fatalf("unexpected active clips: %#v", status.ActiveClips)
	}
	if status.Workflow.QueueStats["RECORDING"] != 1 {
		t.Fatalf("unexpected queue stats: %v", status.Workflow.QueueStats)
	}
}

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7571":        "http://127.0.0.1:7571",
		":7571":                 "http://127.0.0.1:7571",
		"0.0.0.0:8080":          "http://127.0.0.1:8080",
		"http://example.test/":  "http://example.test",
		"https://clips.test:99": "https://clips.test:99",
	}
	for in, want := range cases {
		if got := BaseURL(in); got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
