package autoclip

import (
	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithDefaults sets the trigger configuration used for workflows that have no
// stored trigger_configs row.
func WithDefaults(cfg queue.TriggerConfig) Option {
	return func(m *Manager) {
		if cfg.AutoClipDuration <= 0 {
			cfg.AutoClipDuration = queue.DefaultAutoClipDuration
		}
		m.defaults = cfg
	}
}

// DefaultsFromConfig maps the [triggers] config section onto a TriggerConfig.
func DefaultsFromConfig(cfg *config.Config) queue.TriggerConfig {
	if cfg == nil {
		return queue.TriggerConfig{}
	}
	t := cfg.Triggers
	return queue.TriggerConfig{
		Workflow:         t.Workflow,
		AudioEnabled:     t.AudioEnabled,
		VisualEnabled:    t.VisualEnabled,
		AutoClipEnabled:  t.AutoClipEnabled,
		AutoClipDuration: t.AutoClipDuration,
		CooldownSeconds:  t.CooldownSeconds,
	}
}
