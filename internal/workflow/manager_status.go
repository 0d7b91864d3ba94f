package workflow

import (
	"context"
	"sort"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	Handler     string
	ActiveItems []string
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	active := make([]string, 0, len(m.active))
	for id := range m.active {
		active = append(active, id)
	}
	m.mu.RUnlock()
	sort.Strings(active)

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:     running,
		Workers:     m.workers,
		ActiveItems: active,
		QueueStats:  stats,
	}
	if m.handler != nil {
		summary.Handler = m.handler.Name()
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copy := *lastItem
		summary.LastItem = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
