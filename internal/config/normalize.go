package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeConverter(); err != nil {
		return err
	}
	if err := c.normalizeExport(); err != nil {
		return err
	}
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.normalizeTriggers()
	c.normalizeMaintenance()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeConverter() error {
	if value, ok := os.LookupEnv("CLIPFORGE_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Converter.FFmpegBinary = value
	}
	if value, ok := os.LookupEnv("CLIPFORGE_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Converter.FFprobeBinary = value
	}
	c.Converter.FFmpegBinary = strings.TrimSpace(c.Converter.FFmpegBinary)
	if c.Converter.FFmpegBinary == "" {
		c.Converter.FFmpegBinary = defaultFFmpegBinary
	}
	c.Converter.FFprobeBinary = strings.TrimSpace(c.Converter.FFprobeBinary)
	if c.Converter.FFprobeBinary == "" {
		c.Converter.FFprobeBinary = defaultFFprobeBinary
	}
	c.Converter.Format = strings.ToLower(strings.TrimSpace(c.Converter.Format))
	if c.Converter.Format == "" {
		c.Converter.Format = defaultFormat
	}
	c.Converter.Quality = strings.ToLower(strings.TrimSpace(c.Converter.Quality))
	if c.Converter.Quality == "" {
		c.Converter.Quality = defaultQuality
	}
	c.Converter.AspectRatio = strings.TrimSpace(c.Converter.AspectRatio)
	c.Converter.Watermark = strings.TrimSpace(c.Converter.Watermark)
	return nil
}

func (c *Config) normalizeExport() error {
	if strings.TrimSpace(c.Export.ProfilesPath) == "" {
		c.Export.ProfilesPath = ""
		return nil
	}
	var err error
	if c.Export.ProfilesPath, err = expandPath(c.Export.ProfilesPath); err != nil {
		return fmt.Errorf("export.profiles_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTriggers() {
	c.Triggers.Workflow = strings.TrimSpace(c.Triggers.Workflow)
	if c.Triggers.Workflow == "" {
		c.Triggers.Workflow = defaultWorkflow
	}
}

func (c *Config) normalizeMaintenance() {
	c.Maintenance.Schedule = strings.TrimSpace(c.Maintenance.Schedule)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
