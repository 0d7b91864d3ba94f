package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "clipforge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "clips") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7571" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Triggers.AutoClipDuration != 60 {
		t.Fatalf("expected default auto clip duration 60, got %d", cfg.Triggers.AutoClipDuration)
	}
	if cfg.QueueDBPath() != filepath.Join(wantData, "clipforge.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}
	if cfg.LockPath() != filepath.Join(wantData, "clipforged.lock") || cfg.PIDPath() != filepath.Join(wantData, "clipforged.pid") {
		t.Fatalf("unexpected runtime paths: %q %q", cfg.LockPath(), cfg.PIDPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	configPath := filepath.Join(tempHome, "config.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"data_dir":   "~/data",
			"output_dir": "~/out",
		},
		"triggers": map[string]any{
			"auto_clip_enabled":  false,
			"auto_clip_duration": 45,
		},
		"converter": map[string]any{
			"format":       "WEBM",
			"quality":      "High",
			"aspect_ratio": "9:16",
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected resolved %q to exist, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Triggers.AutoClipEnabled {
		t.Fatal("expected auto clip disabled")
	}
	if cfg.Triggers.AutoClipDuration != 45 {
		t.Fatalf("unexpected auto clip duration %d", cfg.Triggers.AutoClipDuration)
	}
	if cfg.Converter.Format != "webm" || cfg.Converter.Quality != "high" {
		t.Fatalf("expected normalized converter values, got %q/%q", cfg.Converter.Format, cfg.Converter.Quality)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\nstaging_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"format", func(c *config.Config) { c.Converter.Format = "avi" }, "converter.format"},
		{"quality", func(c *config.Config) { c.Converter.Quality = "ultra" }, "converter.quality"},
		{"aspect", func(c *config.Config) { c.Converter.AspectRatio = "21:9" }, "converter.aspect_ratio"},
		{"workers", func(c *config.Config) { c.Processor.Workers = 0 }, "processor.workers"},
		{"heartbeat", func(c *config.Config) { c.Processor.HeartbeatTimeout = c.Processor.HeartbeatInterval }, "processor.heartbeat_timeout"},
		{"duration", func(c *config.Config) { c.Triggers.AutoClipDuration = 0 }, "triggers.auto_clip_duration"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"schedule", func(c *config.Config) { c.Maintenance.Schedule = "every night" }, "maintenance.schedule"},
		{"probe timeout", func(c *config.Config) { c.Converter.ProbeTimeout = 0 }, "converter.probe_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestEnvOverridesBinaries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLIPFORGE_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Converter.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected env override, got %q", cfg.Converter.FFmpegBinary)
	}
	if cfg.Converter.FFprobeBinary != "ffprobe" {
		t.Fatalf("expected default ffprobe, got %q", cfg.Converter.FFprobeBinary)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.OutputDir, cfg.Paths.WorkDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
