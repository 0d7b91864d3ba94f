package autoclip

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// StartSession creates the session row and loads its workflow's trigger
// configuration. An empty sessionID gets a generated one; an empty workflow
// uses the default workflow.
func (m *Manager) StartSession(ctx context.Context, sessionID, workflow, sourcePath string) (*queue.Session, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	if strings.TrimSpace(workflow) == "" {
		workflow = m.defaults.Workflow
	}
	session, err := m.store.CreateSession(ctx, queue.Session{ID: sessionID, Workflow: workflow, SourcePath: sourcePath})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "autoclip", "start session", sessionID, err)
	}
	m.mu.Lock()
	m.sessionWorkflow[session.ID] = session.Workflow
	m.mu.Unlock()
	if _, err := m.ReloadConfig(ctx, session.Workflow); err != nil {
		logging.WarnWithContext(m.logger, "trigger config load failed; using defaults", "trigger_config_failed",
			logging.String(logging.FieldSessionID, session.ID),
			logging.String(logging.FieldImpact, "session uses default trigger settings"),
			logging.Error(err),
		)
	}
	logging.WithContext(services.WithSessionID(ctx, session.ID), m.logger).Info(
		"session started",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String("workflow", session.Workflow),
	)
	return session, nil
}

// EndSession force-ends the session's active clip and forgets its cached
// state. Queue rows are kept. It returns the ended item, if any.
func (m *Manager) EndSession(ctx context.Context, sessionID string) *queue.Item {
	ctx = ensureContext(ctx)
	var ended *queue.Item
	if clip, ok := m.ActiveFor(sessionID); ok {
		ended = m.endNow(ctx, clip)
	}
	m.mu.Lock()
	delete(m.sessionWorkflow, sessionID)
	if _, recording := m.bySession[sessionID]; !recording {
		delete(m.locks, sessionID)
	}
	m.mu.Unlock()
	logging.WithContext(services.WithSessionID(ctx, sessionID), m.logger).Info(
		"session ended",
		logging.String(logging.FieldEventType, "session_end"),
		logging.Bool("clip_ended", ended != nil),
	)
	return ended
}

// DeleteSession tears the session down: the active clip's timer is stopped
// and the session row is deleted together with its items and clips.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	ctx = ensureContext(ctx)
	lock := m.sessionLock(sessionID)
	lock.Lock()
	if id, ok := m.activeFor(sessionID); ok {
		if entry := m.takeTimer(id); entry != nil {
			m.forget(entry)
		}
	}
	removed, err := m.store.DeleteSession(ctx, sessionID)
	lock.Unlock()
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	delete(m.sessionWorkflow, sessionID)
	delete(m.locks, sessionID)
	m.mu.Unlock()
	if removed {
		logging.WithContext(services.WithSessionID(ctx, sessionID), m.logger).Info(
			"session deleted",
			logging.String(logging.FieldEventType, "session_delete"),
		)
	}
	return removed, nil
}

// ReloadConfig re-reads a workflow's trigger configuration from the store.
// Running timers keep the duration they were armed with.
func (m *Manager) ReloadConfig(ctx context.Context, workflow string) (queue.TriggerConfig, error) {
	workflow = strings.TrimSpace(workflow)
	if workflow == "" {
		return queue.TriggerConfig{}, errors.New("reload config: workflow is required")
	}
	stored, err := m.store.GetTriggerConfig(ensureContext(ctx), workflow)
	if err != nil {
		return m.defaultsFor(workflow), err
	}
	cfg := m.defaultsFor(workflow)
	if stored != nil {
		cfg = *stored
	}
	m.mu.Lock()
	m.configs[workflow] = cfg
	m.mu.Unlock()
	m.logger.Debug("trigger config loaded",
		logging.String("workflow", workflow),
		logging.Bool("auto_clip_enabled", cfg.AutoClipEnabled),
		logging.Int("auto_clip_duration", cfg.AutoClipDuration),
		logging.Bool("stored", stored != nil),
	)
	return cfg, nil
}

// Config returns the cached configuration for workflow, loading it when absent.
func (m *Manager) Config(ctx context.Context, workflow string) queue.TriggerConfig {
	m.mu.Lock()
	cfg, ok := m.configs[workflow]
	m.mu.Unlock()
	if ok {
		return cfg
	}
	cfg, err := m.ReloadConfig(ctx, workflow)
	if err != nil {
		logging.WarnWithContext(m.logger, "trigger config load failed; using defaults", "trigger_config_failed",
			logging.String("workflow", workflow),
			logging.String(logging.FieldImpact, "defaults apply until the next reload"),
			logging.Error(err),
		)
	}
	return cfg
}

func (m *Manager) configFor(ctx context.Context, sessionID string) queue.TriggerConfig {
	m.mu.Lock()
	workflow, ok := m.sessionWorkflow[sessionID]
	m.mu.Unlock()
	if !ok {
		workflow = m.defaults.Workflow
		session, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			logging.WarnWithContext(m.logger, "session lookup failed", "session_lookup_failed",
				logging.String(logging.FieldSessionID, sessionID),
				logging.String(logging.FieldImpact, "default trigger settings applied"),
				logging.Error(err),
			)
		}
		if session != nil {
			workflow = session.Workflow
			m.mu.Lock()
			m.sessionWorkflow[sessionID] = workflow
			m.mu.Unlock()
		}
	}
	return m.Config(ctx, workflow)
}

func (m *Manager) defaultsFor(workflow string) queue.TriggerConfig {
	cfg := m.defaults
	cfg.Workflow = workflow
	return cfg
}
