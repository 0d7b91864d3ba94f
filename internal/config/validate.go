package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

var (
	validFormats   = map[string]struct{}{"mp4": {}, "webm": {}, "gif": {}, "mov": {}}
	validQualities = map[string]struct{}{"low": {}, "medium": {}, "high": {}, "original": {}}
	validAspects   = map[string]struct{}{"": {}, "16:9": {}, "9:16": {}, "1:1": {}, "4:5": {}}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTriggers(); err != nil {
		return err
	}
	if err := c.validateProcessor(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateMaintenance(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTriggers() error {
	if c.Triggers.AutoClipDuration <= 0 {
		return errors.New("triggers.auto_clip_duration must be positive")
	}
	if c.Triggers.CooldownSeconds < 0 {
		return errors.New("triggers.cooldown_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateProcessor() error {
	if c.Processor.Workers <= 0 {
		return errors.New("processor.workers must be positive")
	}
	if c.Processor.PollInterval <= 0 {
		return errors.New("processor.poll_interval must be positive")
	}
	if c.Processor.ErrorRetryInterval <= 0 {
		return errors.New("processor.error_retry_interval must be positive")
	}
	if c.Processor.HeartbeatInterval <= 0 {
		return errors.New("processor.heartbeat_interval must be positive")
	}
	if c.Processor.HeartbeatTimeout <= c.Processor.HeartbeatInterval {
		return errors.New("processor.heartbeat_timeout must be greater than processor.heartbeat_interval")
	}
	if c.Processor.DurationEpsilon < 0 {
		return errors.New("processor.duration_epsilon must be zero or positive")
	}
	return nil
}

func (c *Config) validateConverter() error {
	if _, ok := validFormats[c.Converter.Format]; !ok {
		return fmt.Errorf("converter.format: unsupported value %q", c.Converter.Format)
	}
	if _, ok := validQualities[c.Converter.Quality]; !ok {
		return fmt.Errorf("converter.quality: unsupported value %q", c.Converter.Quality)
	}
	if _, ok := validAspects[c.Converter.AspectRatio]; !ok {
		return fmt.Errorf("converter.aspect_ratio: unsupported value %q", c.Converter.AspectRatio)
	}
	if c.Converter.ConversionTimeout <= 0 {
		return errors.New("converter.conversion_timeout must be positive")
	}
	if c.Converter.ThumbnailTimeout <= 0 {
		return errors.New("converter.thumbnail_timeout must be positive")
	}
	if c.Converter.ProbeTimeout <= 0 {
		return errors.New("converter.probe_timeout must be positive")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.Concurrency <= 0 {
		return errors.New("export.concurrency must be positive")
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if c.Maintenance.RetentionDays < 0 {
		return errors.New("maintenance.retention_days must be zero or positive")
	}
	if c.Maintenance.RetentionDays > 0 {
		if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
			return fmt.Errorf("maintenance.schedule: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
