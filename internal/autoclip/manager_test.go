package autoclip_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipforge/internal/autoclip"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
	"clipforge/internal/trigger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notifications.Envelope
}

func (s *recordingSink) Publish(_ context.Context, env notifications.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, env)
	return nil
}

func (s *recordingSink) types() []notifications.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Type, 0, len(s.events))
	for _, env := range s.events {
		out = append(out, env.Type)
	}
	return out
}

func (s *recordingSink) last() notifications.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

type harness struct {
	store   *queue.Store
	sink    *recordingSink
	clock   *fakeClock
	manager *autoclip.Manager
	session *queue.Session
}

func newHarness(t *testing.T, cfg queue.TriggerConfig) *harness {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	sink := &recordingSink{}
	clock := newFakeClock(time.Now())
	if cfg.Workflow == "" {
		cfg.Workflow = "default"
	}
	manager := autoclip.New(store, sink, autoclip.WithClock(clock), autoclip.WithDefaults(cfg))
	session, err := manager.StartSession(context.Background(), "", cfg.Workflow, "/recordings/stream.mkv")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return &harness{store: store, sink: sink, clock: clock, manager: manager, session: session}
}

func autoConfig(seconds int) queue.TriggerConfig {
	return queue.TriggerConfig{
		AudioEnabled:     true,
		VisualEnabled:    true,
		AutoClipEnabled:  true,
		AutoClipDuration: seconds,
	}
}

func manualOnly() queue.TriggerConfig {
	return queue.TriggerConfig{AudioEnabled: true, VisualEnabled: true}
}

func TestHandleTriggerCreatesRecording(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromAudio(trigger.AudioMatch{
		SessionID: h.session.ID, Phrase: "clip that", Confidence: 0.92, T: 100,
	}))
	if item == nil {
		t.Fatal("expected an item")
	}
	if item.Status != queue.StatusRecording || item.T0 != 100 || item.T1 != nil {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Title != "Voice: Clip That" {
		t.Fatalf("unexpected title %q", item.Title)
	}
	got := h.sink.types()
	if len(got) != 2 || got[0] != notifications.TypeClipIntentStart || got[1] != notifications.TypeClipQueueUpdated {
		t.Fatalf("unexpected notifications %v", got)
	}
	active, ok := h.manager.ActiveFor(h.session.ID)
	if !ok || active.ItemID != item.ID || !active.AutoEnd {
		t.Fatalf("expected active clip for session, got %+v %v", active, ok)
	}
}

func TestSecondTriggerWhileRecordingIgnored(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	first := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 10}))
	if first == nil {
		t.Fatal("expected first trigger to start a clip")
	}
	second := h.manager.HandleTrigger(ctx, trigger.FromVisual(trigger.VisualMatch{
		SessionID: h.session.ID, Label: "thumbs up", Confidence: 0.8, T: 12,
	}))
	if second != nil {
		t.Fatalf("expected second trigger to be ignored, got %+v", second)
	}
	items, err := h.store.ListBySession(ctx, h.session.ID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
}

func TestAutoClipEndsAfterDuration(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromAudio(trigger.AudioMatch{
		SessionID: h.session.ID, Phrase: "clip that", Confidence: 0.9, T: 100,
	}))
	if item == nil {
		t.Fatal("expected an item")
	}

	h.clock.Advance(59 * time.Second)
	if _, ok := h.manager.ActiveFor(h.session.ID); !ok {
		t.Fatal("clip should still be recording before the deadline")
	}
	h.clock.Advance(time.Second)

	stored, err := h.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusPending {
		t.Fatalf("expected PENDING, got %s", stored.Status)
	}
	if stored.T1 == nil || *stored.T1 != 160 {
		t.Fatalf("expected t1=160, got %v", stored.T1)
	}
	if _, ok := h.manager.ActiveFor(h.session.ID); ok {
		t.Fatal("working set should be empty after auto end")
	}
	if h.sink.last().Type != notifications.TypeClipQueueUpdated {
		t.Fatalf("expected trailing queue update, got %s", h.sink.last().Type)
	}
}

func TestEndClipExplicitAndRepeated(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 20}))
	if item == nil {
		t.Fatal("expected an item")
	}
	end := 35.0
	ended := h.manager.EndClip(ctx, item.ID, &end)
	if ended == nil || ended.T1 == nil || *ended.T1 != 35 {
		t.Fatalf("unexpected ended item %+v", ended)
	}
	if h.clock.Pending() != 0 {
		t.Fatal("expected auto-end timer to be stopped")
	}

	before := len(h.sink.types())
	if again := h.manager.EndClip(ctx, item.ID, &end); again != nil {
		t.Fatalf("expected second EndClip to be a no-op, got %+v", again)
	}
	if len(h.sink.types()) != before {
		t.Fatal("second EndClip must not publish")
	}

	// The stopped timer must not end the clip a second time.
	h.clock.Advance(2 * time.Minute)
	stored, _ := h.store.GetByID(ctx, item.ID)
	if stored.Status != queue.StatusPending || *stored.T1 != 35 {
		t.Fatalf("unexpected stored item %+v", stored)
	}
}

func TestEndClipClampsToStart(t *testing.T) {
	h := newHarness(t, manualOnly())
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 50}))
	if item == nil {
		t.Fatal("expected an item")
	}
	early := 40.0
	ended := h.manager.EndClip(ctx, item.ID, &early)
	if ended == nil || ended.T1 == nil || *ended.T1 != 50 {
		t.Fatalf("expected t1 clamped to t0, got %+v", ended)
	}
}

func TestManualTriggerWhileAutoClipDisabled(t *testing.T) {
	h := newHarness(t, manualOnly())
	ctx := context.Background()

	audio := h.manager.HandleTrigger(ctx, trigger.FromAudio(trigger.AudioMatch{
		SessionID: h.session.ID, Phrase: "clip that", Confidence: 0.99, T: 5,
	}))
	if audio != nil {
		t.Fatalf("audio trigger should be ignored while auto-clip is disabled, got %+v", audio)
	}

	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 5}))
	if item == nil {
		t.Fatal("manual trigger should always start a clip")
	}
	if item.TriggerConfidence != nil {
		t.Fatalf("manual clips carry no confidence, got %v", *item.TriggerConfidence)
	}
	if h.clock.Pending() != 0 {
		t.Fatal("no auto-end timer expected while auto-clip is disabled")
	}
	h.clock.Advance(10 * time.Minute)
	if _, ok := h.manager.ActiveFor(h.session.ID); !ok {
		t.Fatal("manual clip should stay open until ended explicitly")
	}
}

func TestDisabledDetectionSourceIgnored(t *testing.T) {
	cfg := autoConfig(30)
	cfg.VisualEnabled = false
	h := newHarness(t, cfg)

	item := h.manager.HandleTrigger(context.Background(), trigger.FromVisual(trigger.VisualMatch{
		SessionID: h.session.ID, Label: "wave", Confidence: 0.7, T: 1,
	}))
	if item != nil {
		t.Fatalf("visual trigger should be ignored, got %+v", item)
	}
}

func TestStoredTriggerConfigOverridesDefaults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.UpsertTriggerConfig(ctx, queue.TriggerConfig{
		Workflow:         "shorts",
		AudioEnabled:     true,
		AutoClipEnabled:  true,
		AutoClipDuration: 15,
	}); err != nil {
		t.Fatalf("UpsertTriggerConfig: %v", err)
	}
	clock := newFakeClock(time.Now())
	manager := autoclip.New(store, nil, autoclip.WithClock(clock), autoclip.WithDefaults(autoConfig(60)))
	session, err := manager.StartSession(ctx, "s-shorts", "shorts", "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	item := manager.HandleTrigger(ctx, trigger.FromAudio(trigger.AudioMatch{SessionID: session.ID, Phrase: "go", Confidence: 1, T: 0}))
	if item == nil {
		t.Fatal("expected an item")
	}
	clock.Advance(15 * time.Second)
	stored, _ := store.GetByID(ctx, item.ID)
	if stored.T1 == nil || *stored.T1 != 15 {
		t.Fatalf("expected 15s auto clip, got %v", stored.T1)
	}
}

func TestCancelClip(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 1}))
	if item == nil {
		t.Fatal("expected an item")
	}
	if !h.manager.CancelClip(ctx, item.ID) {
		t.Fatal("expected cancel to succeed")
	}
	if h.clock.Pending() != 0 {
		t.Fatal("cancel should stop the auto-end timer")
	}
	if _, ok := h.manager.ActiveFor(h.session.ID); ok {
		t.Fatal("cancelled clip should leave the working set")
	}
	stored, err := h.store.GetByID(ctx, item.ID)
	if err != nil || stored != nil {
		t.Fatalf("expected item deleted, got %+v %v", stored, err)
	}
	last := h.sink.last()
	if last.Type != notifications.TypeClipQueueUpdated || last.Payload["status"] != notifications.StatusCancelled {
		t.Fatalf("unexpected cancel notification %+v", last)
	}
	if h.manager.CancelClip(ctx, item.ID) {
		t.Fatal("second cancel should report false")
	}

	next := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 2}))
	if next == nil {
		t.Fatal("session should accept a new trigger after cancel")
	}
}

func TestCancelCompletedClipRefused(t *testing.T) {
	h := newHarness(t, manualOnly())
	ctx := context.Background()

	item := testsupport.NewPendingItem(t, h.store, h.session.ID, 0, 5)
	if _, err := h.store.StartProcessing(ctx, item.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if _, err := h.store.CompleteProcessing(ctx, item.ID, "clip-1", ""); err != nil {
		t.Fatalf("CompleteProcessing: %v", err)
	}
	if h.manager.CancelClip(ctx, item.ID) {
		t.Fatal("completed items cannot be cancelled")
	}
	stored, _ := h.store.GetByID(ctx, item.ID)
	if stored == nil || stored.Status != queue.StatusCompleted {
		t.Fatalf("completed item should remain, got %+v", stored)
	}
}

func TestStopAllEndsAtElapsedTime(t *testing.T) {
	h := newHarness(t, manualOnly())
	ctx := context.Background()
	other, err := h.manager.StartSession(ctx, "", "default", "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	a := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 100}))
	h.clock.Advance(5 * time.Second)
	b := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: other.ID, T: 7}))
	if a == nil || b == nil {
		t.Fatal("expected both sessions to start clips")
	}
	h.clock.Advance(10 * time.Second)

	if ended := h.manager.StopAll(ctx); ended != 2 {
		t.Fatalf("expected 2 clips ended, got %d", ended)
	}
	if len(h.manager.Active()) != 0 {
		t.Fatal("working set should be empty")
	}
	storedA, _ := h.store.GetByID(ctx, a.ID)
	storedB, _ := h.store.GetByID(ctx, b.ID)
	if storedA.T1 == nil || *storedA.T1 != 115 {
		t.Fatalf("expected a.t1=115, got %v", storedA.T1)
	}
	if storedB.T1 == nil || *storedB.T1 != 17 {
		t.Fatalf("expected b.t1=17, got %v", storedB.T1)
	}
}

func TestSuspendKeepsRecordingRows(t *testing.T) {
	h := newHarness(t, autoConfig(30))
	ctx := context.Background()
	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 12}))
	if item == nil {
		t.Fatal("expected clip")
	}
	if n := h.manager.Suspend(); n != 1 {
		t.Fatalf("expected 1 suspended clip, got %d", n)
	}
	if h.clock.Pending() != 0 {
		t.Fatal("timer should be disarmed")
	}
	if _, ok := h.manager.ActiveFor(h.session.ID); ok {
		t.Fatal("working set should be empty")
	}
	h.clock.Advance(time.Minute)
	stored, _ := h.store.GetByID(ctx, item.ID)
	if stored.Status != queue.StatusRecording {
		t.Fatalf("expected RECORDING row to survive, got %s", stored.Status)
	}
	if restored, _ := h.manager.Rehydrate(ctx); restored != 1 {
		t.Fatalf("expected rehydrate to restore the clip, got %d", restored)
	}
}

func TestRehydrateRearmsRemainingTime(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	session := testsupport.NewSession(t, store, "default", "")
	item, err := store.CreateRecording(ctx, queue.NewItem{
		SessionID:   session.ID,
		TriggerType: queue.TriggerAudio,
		T0:          200,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	clock := newFakeClock(item.CreatedAt.Add(20 * time.Second))
	manager := autoclip.New(store, nil, autoclip.WithClock(clock), autoclip.WithDefaults(autoConfig(60)))
	restored, err := manager.Rehydrate(ctx)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if restored != 1 {
		t.Fatalf("expected 1 restored clip, got %d", restored)
	}
	if again, _ := manager.Rehydrate(ctx); again != 0 {
		t.Fatalf("second rehydrate should be a no-op, got %d", again)
	}

	clock.Advance(39 * time.Second)
	if _, ok := manager.ActiveFor(session.ID); !ok {
		t.Fatal("clip should still be recording")
	}
	clock.Advance(time.Second)
	stored, _ := store.GetByID(ctx, item.ID)
	if stored.Status != queue.StatusPending || stored.T1 == nil || *stored.T1 != 260 {
		t.Fatalf("expected rehydrated clip to end at 260, got %+v", stored)
	}
}

func TestRehydrateEndsOverdueClips(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	session := testsupport.NewSession(t, store, "default", "")
	item, err := store.CreateRecording(ctx, queue.NewItem{SessionID: session.ID, TriggerType: queue.TriggerManual, T0: 3})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	clock := newFakeClock(item.CreatedAt.Add(5 * time.Minute))
	manager := autoclip.New(store, nil, autoclip.WithClock(clock), autoclip.WithDefaults(autoConfig(60)))
	if _, err := manager.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	clock.Advance(0)
	stored, _ := store.GetByID(ctx, item.ID)
	if stored.Status != queue.StatusPending || *stored.T1 != 63 {
		t.Fatalf("expected overdue clip to end at t0+duration, got %+v", stored)
	}
}

type failingStore struct {
	*queue.Store
}

func (failingStore) CreateRecording(context.Context, queue.NewItem) (*queue.Item, error) {
	return nil, errors.New("disk full")
}

func TestPersistenceFailureReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	session := testsupport.NewSession(t, store, "default", "")
	sink := &recordingSink{}
	manager := autoclip.New(failingStore{store}, sink, autoclip.WithClock(newFakeClock(time.Now())))

	item := manager.HandleTrigger(context.Background(), trigger.FromManual(trigger.ManualPress{SessionID: session.ID, T: 1}))
	if item != nil {
		t.Fatalf("expected nil on persistence failure, got %+v", item)
	}
	if len(manager.Active()) != 0 {
		t.Fatal("failed trigger must not enter the working set")
	}
	if len(sink.types()) != 0 {
		t.Fatal("failed trigger must not publish")
	}
}

func TestDeleteSessionClearsWorkingSet(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 1}))
	if item == nil {
		t.Fatal("expected an item")
	}
	removed, err := h.manager.DeleteSession(ctx, h.session.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteSession: %v %v", removed, err)
	}
	if h.clock.Pending() != 0 || len(h.manager.Active()) != 0 {
		t.Fatal("session delete should clear timers and working set")
	}
	stored, _ := h.store.GetByID(ctx, item.ID)
	if stored != nil {
		t.Fatal("items should cascade with the session")
	}
}

func TestEndSessionEndsActiveClip(t *testing.T) {
	h := newHarness(t, manualOnly())
	ctx := context.Background()

	item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: 30}))
	h.clock.Advance(4 * time.Second)
	ended := h.manager.EndSession(ctx, h.session.ID)
	if ended == nil || ended.ID != item.ID || *ended.T1 != 34 {
		t.Fatalf("unexpected ended item %+v", ended)
	}
}

func TestDefaultsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAutoClip(true, 45))
	defaults := autoclip.DefaultsFromConfig(cfg)
	if !defaults.AutoClipEnabled || defaults.AutoClipDuration != 45 {
		t.Fatalf("unexpected defaults %+v", defaults)
	}
	if defaults.Workflow != cfg.Triggers.Workflow {
		t.Fatalf("expected workflow %q, got %q", cfg.Triggers.Workflow, defaults.Workflow)
	}
	if got := autoclip.DefaultsFromConfig(nil); got != (queue.TriggerConfig{}) {
		t.Fatalf("expected zero config for nil, got %+v", got)
	}
}

type flakyEndStore struct {
	*queue.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyEndStore) EndRecording(ctx context.Context, id string, t1 float64) (*queue.Item, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("database is locked")
	}
	s.mu.Unlock()
	return s.Store.EndRecording(ctx, id, t1)
}

func TestAutoEndRetriesAfterTransientStoreError(t *testing.T) {
	store := &flakyEndStore{Store: testsupport.MustOpenStore(t, testsupport.NewConfig(t)), failures: 1}
	clock := newFakeClock(time.Now())
	cfg := autoConfig(60)
	cfg.Workflow = "default"
	manager := autoclip.New(store, &recordingSink{}, autoclip.WithClock(clock), autoclip.WithDefaults(cfg))
	ctx := context.Background()
	session, err := manager.StartSession(ctx, "", cfg.Workflow, "/recordings/stream.mkv")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	item := manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: session.ID, T: 100}))
	if item == nil {
		t.Fatal("expected an item")
	}

	clock.Advance(61 * time.Second)
	if clock.Pending() != 1 {
		t.Fatalf("expected a retry timer after the failed end, got %d pending", clock.Pending())
	}
	if _, ok := manager.ActiveFor(session.ID); !ok {
		t.Fatal("expected clip to stay in the working set until the end succeeds")
	}

	clock.Advance(10 * time.Second)
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending || got.T1 == nil || *got.T1 != 160 {
		t.Fatalf("expected PENDING with t1=160 after retry, got %+v", got)
	}
	if _, ok := manager.ActiveFor(session.ID); ok {
		t.Fatal("expected working set to be empty")
	}
	next := manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: session.ID, T: 200}))
	if next == nil {
		t.Fatal("expected a new trigger to be accepted once the clip ended")
	}
}

func TestConcurrentTriggersOpenOneClip(t *testing.T) {
	h := newHarness(t, autoConfig(60))
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []*queue.Item
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			item := h.manager.HandleTrigger(ctx, trigger.FromManual(trigger.ManualPress{SessionID: h.session.ID, T: float64(i)}))
			if item != nil {
				mu.Lock()
				created = append(created, item)
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(created) != 1 {
		t.Fatalf("expected exactly one clip, got %d", len(created))
	}
	recording, err := h.store.List(ctx, queue.StatusRecording)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recording) != 1 || recording[0].ID != created[0].ID {
		t.Fatalf("expected one RECORDING row matching the created clip, got %d", len(recording))
	}
	active, ok := h.manager.ActiveFor(h.session.ID)
	if !ok || active.ItemID != created[0].ID {
		t.Fatalf("unexpected working set %+v %v", active, ok)
	}
}
