package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const triggerConfigColumns = "workflow, audio_enabled, visual_enabled, auto_clip_enabled, auto_clip_duration, cooldown_seconds, updated_at"

// GetTriggerConfig returns the stored configuration for a workflow, or nil when
// none has been saved.
func (s *Store) GetTriggerConfig(ctx context.Context, workflow string) (*TriggerConfig, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+triggerConfigColumns+` FROM trigger_configs WHERE workflow = ?`,
		strings.TrimSpace(workflow))
	cfg, err := scanTriggerConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger config: %w", err)
	}
	return cfg, nil
}

// UpsertTriggerConfig stores cfg keyed by its workflow name.
func (s *Store) UpsertTriggerConfig(ctx context.Context, cfg TriggerConfig) (*TriggerConfig, error) {
	workflow := strings.TrimSpace(cfg.Workflow)
	if workflow == "" {
		return nil, errors.New("upsert trigger config: workflow is required")
	}
	if cfg.AutoClipDuration <= 0 {
		cfg.AutoClipDuration = DefaultAutoClipDuration
	}
	if cfg.CooldownSeconds < 0 {
		return nil, errors.New("upsert trigger config: cooldown must be zero or positive")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO trigger_configs (`+triggerConfigColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(workflow) DO UPDATE SET
             audio_enabled = excluded.audio_enabled,
             visual_enabled = excluded.visual_enabled,
             auto_clip_enabled = excluded.auto_clip_enabled,
             auto_clip_duration = excluded.auto_clip_duration,
             cooldown_seconds = excluded.cooldown_seconds,
             updated_at = excluded.updated_at`,
		workflow,
		boolToInt(cfg.AudioEnabled),
		boolToInt(cfg.VisualEnabled),
		boolToInt(cfg.AutoClipEnabled),
		cfg.AutoClipDuration,
		cfg.CooldownSeconds,
		now(),
	); err != nil {
		return nil, fmt.Errorf("upsert trigger config: %w", err)
	}
	return s.GetTriggerConfig(ctx, workflow)
}

// ListTriggerConfigs returns every stored workflow configuration.
func (s *Store) ListTriggerConfigs(ctx context.Context) ([]*TriggerConfig, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+triggerConfigColumns+` FROM trigger_configs ORDER BY workflow`)
	if err != nil {
		return nil, fmt.Errorf("list trigger configs: %w", err)
	}
	defer rows.Close()

	var configs []*TriggerConfig
	for rows.Next() {
		cfg, err := scanTriggerConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func scanTriggerConfig(scanner interface{ Scan(dest ...any) error }) (*TriggerConfig, error) {
	var (
		cfg                     TriggerConfig
		audio, visual, autoClip int
		updatedRaw              string
	)
	if err := scanner.Scan(
		&cfg.Workflow,
		&audio,
		&visual,
		&autoClip,
		&cfg.AutoClipDuration,
		&cfg.CooldownSeconds,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	cfg.AudioEnabled = audio != 0
	cfg.VisualEnabled = visual != 0
	cfg.AutoClipEnabled = autoClip != 0
	if updated, err := parseTimeString(updatedRaw); err == nil {
		cfg.UpdatedAt = updated
	}
	return &cfg, nil
}
