package autoclip

import (
	"context"
	"fmt"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// Rehydrate rebuilds the working set from RECORDING rows, re-arming auto-end
// timers for whatever remains of each clip's duration. Clips whose window has
// already elapsed end immediately at t0 plus the duration. It returns the
// number of clips restored.
func (m *Manager) Rehydrate(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	items, err := m.store.List(ctx, queue.StatusRecording)
	if err != nil {
		return 0, fmt.Errorf("rehydrate: %w", err)
	}
	restored := 0
	for _, item := range items {
		if m.restore(ctx, item) {
			restored++
		}
	}
	if restored > 0 {
		m.logger.Info("working set rehydrated", logging.Int("count", restored))
	}
	return restored, nil
}

func (m *Manager) restore(ctx context.Context, item *queue.Item) bool {
	cfg := m.configFor(ctx, item.SessionID)

	lock := m.sessionLock(item.SessionID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	_, known := m.active[item.ID]
	m.mu.Unlock()
	if known {
		return false
	}

	startedAt := item.CreatedAt
	if startedAt.IsZero() {
		startedAt = m.clock.Now()
	}
	entry := &activeClip{
		itemID:      item.ID,
		sessionID:   item.SessionID,
		triggerType: item.TriggerType,
		t0:          item.T0,
		startedAt:   startedAt,
		duration:    cfg.AutoClipWindow(),
		autoEnd:     cfg.AutoClipEnabled,
	}
	m.track(entry)
	if entry.autoEnd {
		m.armTimer(entry, entry.duration-m.clock.Now().Sub(startedAt))
	}
	return true
}
