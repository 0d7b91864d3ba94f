package autoclip

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/textutil"
	"clipforge/internal/trigger"
)

// endRetryDelay spaces attempts to end a clip after a transient store error.
const endRetryDelay = 5 * time.Second

// Store is the persistence surface the manager needs.
type Store interface {
	CreateRecording(ctx context.Context, in queue.NewItem) (*queue.Item, error)
	EndRecording(ctx context.Context, id string, t1 float64) (*queue.Item, error)
	Cancel(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*queue.Item, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	GetTriggerConfig(ctx context.Context, workflow string) (*queue.TriggerConfig, error)
	CreateSession(ctx context.Context, session queue.Session) (*queue.Session, error)
	GetSession(ctx context.Context, id string) (*queue.Session, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
}

// Manager is the session-scoped state machine that turns triggers into queue
// items. Each Manager owns its own working set; instances never share state.
type Manager struct {
	store    Store
	sink     notifications.Sink
	logger   *slog.Logger
	clock    Clock
	defaults queue.TriggerConfig

	mu              sync.Mutex
	active          map[string]*activeClip
	bySession       map[string]string
	sessionWorkflow map[string]string
	configs         map[string]queue.TriggerConfig
	locks           map[string]*sync.Mutex
}

type activeClip struct {
	itemID      string
	sessionID   string
	triggerType queue.TriggerType
	t0          float64
	startedAt   time.Time
	duration    time.Duration
	autoEnd     bool
	timer       Timer
}

// ActiveClip is a read-only view of a working-set entry.
type ActiveClip struct {
	ItemID      string
	SessionID   string
	TriggerType queue.TriggerType
	T0          float64
	StartedAt   time.Time
	AutoEnd     bool
	Deadline    time.Time
}

// New builds a manager bound to store and sink. A nil sink discards
// notifications.
func New(store Store, sink notifications.Sink, opts ...Option) *Manager {
	if sink == nil {
		sink = notifications.Nop{}
	}
	m := &Manager{
		store:  store,
		sink:   sink,
		logger: logging.NewNop(),
		clock:  SystemClock{},
		defaults: queue.TriggerConfig{
			Workflow:         "default",
			AudioEnabled:     true,
			VisualEnabled:    true,
			AutoClipEnabled:  true,
			AutoClipDuration: queue.DefaultAutoClipDuration,
		},
		active:          make(map[string]*activeClip),
		bySession:       make(map[string]string),
		sessionWorkflow: make(map[string]string),
		configs:         make(map[string]queue.TriggerConfig),
		locks:           make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "autoclip")
	return m
}

// HandleTrigger accepts a normalized trigger and opens a RECORDING item for
// its session. It returns nil when the trigger is ignored (auto-clip disabled
// for a non-manual trigger, detection source disabled, or the session already
// recording) and when persistence fails.
func (m *Manager) HandleTrigger(ctx context.Context, ev trigger.Event) *queue.Item {
	ctx = services.WithSessionID(ensureContext(ctx), ev.SessionID)
	logger := logging.WithContext(ctx, m.logger).With(
		logging.String("trigger", string(trigger.ToWire(ev.Type))),
		logging.String("source", ev.SourceLabel),
		logging.Float64("t", ev.T),
	)
	if ev.SessionID == "" || !ev.Type.Valid() {
		logging.WarnWithContext(logger, "trigger rejected", "trigger_invalid",
			logging.String(logging.FieldErrorHint, "trigger needs a session id and a known type"),
			logging.String(logging.FieldImpact, "no clip created"),
		)
		return nil
	}

	cfg := m.configFor(ctx, ev.SessionID)
	if !cfg.AutoClipEnabled && !ev.IsManual() {
		logger.Debug("trigger ignored", logging.String("reason", "auto-clip disabled"))
		return nil
	}
	if !sourceEnabled(cfg, ev.Type) {
		logger.Debug("trigger ignored", logging.String("reason", "detection source disabled"))
		return nil
	}

	lock := m.sessionLock(ev.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if activeID, ok := m.activeFor(ev.SessionID); ok {
		logger.Info("trigger ignored", logging.String("reason", "session already recording"), logging.String("active_item_id", activeID))
		return nil
	}

	item, err := m.store.CreateRecording(ctx, queue.NewItem{
		SessionID:         ev.SessionID,
		TriggerType:       ev.Type,
		TriggerSource:     ev.SourceLabel,
		TriggerConfidence: ev.Confidence,
		T0:                ev.T,
		Title:             textutil.ClipTitle(string(trigger.ToWire(ev.Type)), ev.SourceLabel),
	})
	if err != nil {
		if errors.Is(err, queue.ErrSessionRecording) {
			logger.Info("trigger ignored", logging.String("reason", "session already recording in store"))
			return nil
		}
		logging.ErrorWithContext(logger, "create recording failed", "clip_create_failed",
			append(logging.FailureAttrs(err), logging.String(logging.FieldErrorHint, "check queue database health"))...)
		return nil
	}

	entry := &activeClip{
		itemID:      item.ID,
		sessionID:   item.SessionID,
		triggerType: item.TriggerType,
		t0:          item.T0,
		startedAt:   m.clock.Now(),
		duration:    cfg.AutoClipWindow(),
		autoEnd:     cfg.AutoClipEnabled,
	}
	m.track(entry)
	if entry.autoEnd {
		m.armTimer(entry, entry.duration)
	}

	logging.WithContext(services.WithItemID(ctx, item.ID), m.logger).Info(
		"clip recording started",
		logging.String(logging.FieldEventType, "clip_start"),
		logging.String("trigger", string(trigger.ToWire(item.TriggerType))),
		logging.Float64("t0", item.T0),
		logging.Bool("auto_end", entry.autoEnd),
	)
	m.publish(ctx, notifications.IntentStart(item))
	m.publish(ctx, notifications.QueueUpdated(item))
	return item
}

// EndClip stops recording for itemID. The end time is t1 when given, else
// t0 plus the auto-clip duration, and never earlier than t0. Calling it for
// an item outside the working set logs a warning and does nothing.
func (m *Manager) EndClip(ctx context.Context, itemID string, t1 *float64) *queue.Item {
	ctx = services.WithItemID(ensureContext(ctx), itemID)
	logger := logging.WithContext(ctx, m.logger)

	sessionID, ok := m.sessionOf(itemID)
	if !ok {
		warnMissing(logger, "end")
		return nil
	}
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	entry := m.takeTimer(itemID)
	if entry == nil {
		warnMissing(logger, "end")
		return nil
	}

	end := entry.t0 + entry.duration.Seconds()
	if t1 != nil {
		end = *t1
	}
	if math.IsNaN(end) || end < entry.t0 {
		end = entry.t0
	}

	ctx = services.WithSessionID(ctx, sessionID)
	item, err := m.store.EndRecording(ctx, itemID, end)
	if err != nil {
		failLogger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrInvalidTransition) {
			m.forget(entry)
			logging.ErrorWithContext(failLogger, "end recording failed", "clip_end_failed", logging.FailureAttrs(err)...)
			return nil
		}
		m.armEnd(entry, endRetryDelay, end)
		logging.ErrorWithContext(failLogger, "end recording failed; will retry", "clip_end_failed",
			append(logging.FailureAttrs(err),
				logging.Duration("retry_in", endRetryDelay),
				logging.Float64("t1", end),
			)...)
		return nil
	}
	m.forget(entry)

	logging.WithContext(ctx, m.logger).Info(
		"clip recording ended",
		logging.String(logging.FieldEventType, "clip_end"),
		logging.Float64("t0", item.T0),
		logging.OptionalFloat("t1", item.T1),
	)
	m.publish(ctx, notifications.IntentEnd(item))
	m.publish(ctx, notifications.QueueUpdated(item))
	return item
}

// CancelClip deletes an item that has not completed, stopping its timer and
// dropping it from the working set. It reports whether a row was removed.
func (m *Manager) CancelClip(ctx context.Context, itemID string) bool {
	ctx = services.WithItemID(ensureContext(ctx), itemID)
	logger := logging.WithContext(ctx, m.logger)

	if sessionID, ok := m.sessionOf(itemID); ok {
		lock := m.sessionLock(sessionID)
		lock.Lock()
		defer lock.Unlock()
	}
	entry := m.takeTimer(itemID)

	item, err := m.store.GetByID(ctx, itemID)
	if err != nil {
		logging.ErrorWithContext(logger, "load item for cancel failed", "clip_cancel_failed", logging.FailureAttrs(err)...)
		return false
	}
	removed, err := m.store.Cancel(ctx, itemID)
	if err != nil {
		logging.ErrorWithContext(logger, "cancel failed", "clip_cancel_failed", logging.FailureAttrs(err)...)
		return false
	}
	if entry != nil {
		m.forget(entry)
	}
	if !removed || item == nil {
		logger.Info("cancel skipped", logging.String("reason", "item missing or completed"))
		return false
	}
	logger.Info("clip cancelled", logging.String(logging.FieldEventType, "clip_cancel"), logging.String(logging.FieldSessionID, item.SessionID))
	m.publish(ctx, notifications.QueueCancelled(item))
	return true
}

// StopAll force-ends every active clip at t0 plus the wall time elapsed since
// its trigger. Failures are logged and skipped. It returns the number of clips
// ended.
func (m *Manager) StopAll(ctx context.Context) int {
	ended := 0
	for _, clip := range m.Active() {
		if m.endNow(ctx, clip) != nil {
			ended++
		}
	}
	if ended > 0 {
		m.logger.Info("active clips stopped", logging.Int("count", ended))
	}
	return ended
}

// Suspend disarms every auto-end timer and empties the working set without
// touching the store. RECORDING rows stay as they are for Rehydrate.
func (m *Manager) Suspend() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.active)
	for id, entry := range m.active {
		if entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
		}
		delete(m.active, id)
	}
	clear(m.bySession)
	return n
}

func (m *Manager) endNow(ctx context.Context, clip ActiveClip) *queue.Item {
	elapsed := m.clock.Now().Sub(clip.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	end := clip.T0 + elapsed
	return m.EndClip(ctx, clip.ItemID, &end)
}

// ActiveFor returns the session's recording clip, if any.
func (m *Manager) ActiveFor(sessionID string) (ActiveClip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySession[sessionID]
	if !ok {
		return ActiveClip{}, false
	}
	return m.active[id].view(), true
}

// Active snapshots the working set ordered by start time.
func (m *Manager) Active() []ActiveClip {
	m.mu.Lock()
	out := make([]ActiveClip, 0, len(m.active))
	for _, entry := range m.active {
		out = append(out, entry.view())
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (c *activeClip) view() ActiveClip {
	view := ActiveClip{
		ItemID:      c.itemID,
		SessionID:   c.sessionID,
		TriggerType: c.triggerType,
		T0:          c.t0,
		StartedAt:   c.startedAt,
		AutoEnd:     c.autoEnd,
	}
	if c.autoEnd {
		view.Deadline = c.startedAt.Add(c.duration)
	}
	return view
}

func (m *Manager) track(entry *activeClip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[entry.itemID] = entry
	m.bySession[entry.sessionID] = entry.itemID
}

// armTimer must run under the entry's session lock.
func (m *Manager) armTimer(entry *activeClip, after time.Duration) {
	m.armEnd(entry, after, entry.t0+entry.duration.Seconds())
}

// armEnd schedules EndClip(entry, end). It must run under the entry's session
// lock.
func (m *Manager) armEnd(entry *activeClip, after time.Duration, end float64) {
	if after < 0 {
		after = 0
	}
	itemID := entry.itemID
	timer := m.clock.AfterFunc(after, func() {
		m.EndClip(context.Background(), itemID, &end)
	})
	m.mu.Lock()
	entry.timer = timer
	m.mu.Unlock()
}

// takeTimer stops and clears the entry's timer, returning the entry if it is
// still in the working set.
func (m *Manager) takeTimer(itemID string) *activeClip {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.active[itemID]
	if !ok {
		return nil
	}
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	return entry
}

func (m *Manager) forget(entry *activeClip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.active[entry.itemID]; ok && current == entry {
		delete(m.active, entry.itemID)
	}
	if m.bySession[entry.sessionID] == entry.itemID {
		delete(m.bySession, entry.sessionID)
	}
}

func (m *Manager) activeFor(sessionID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySession[sessionID]
	return id, ok
}

func (m *Manager) sessionOf(itemID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.active[itemID]
	if !ok {
		return "", false
	}
	return entry.sessionID, true
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}

func (m *Manager) publish(ctx context.Context, env notifications.Envelope) {
	if err := m.sink.Publish(ctx, env); err != nil {
		logging.WarnWithContext(m.logger, "notification publish failed", "notification_failed",
			logging.String("type", string(env.Type)),
			logging.String(logging.FieldImpact, "subscribers missed a clip lifecycle event"),
			logging.Error(err),
		)
	}
}

func warnMissing(logger *slog.Logger, op string) {
	logging.WarnWithContext(logger, op+" requested for clip outside working set", "clip_"+op+"_missing",
		logging.String(logging.FieldErrorHint, "timer and explicit call raced or the clip already ended"),
		logging.String(logging.FieldImpact, "no state changed"),
	)
}

func sourceEnabled(cfg queue.TriggerConfig, t queue.TriggerType) bool {
	switch t {
	case queue.TriggerAudio:
		return cfg.AudioEnabled
	case queue.TriggerVisual:
		return cfg.VisualEnabled
	}
	return true
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
