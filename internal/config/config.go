package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	APIBind   string `toml:"api_bind"`
}

// Triggers holds the trigger configuration applied to workflows that have no
// stored trigger_configs row yet.
type Triggers struct {
	Workflow         string `toml:"workflow"`
	AudioEnabled     bool   `toml:"audio_enabled"`
	VisualEnabled    bool   `toml:"visual_enabled"`
	AutoClipEnabled  bool   `toml:"auto_clip_enabled"`
	AutoClipDuration int    `toml:"auto_clip_duration"`
	CooldownSeconds  int    `toml:"cooldown_seconds"`
}

// Processor contains configuration for the queue processor workers.
type Processor struct {
	Workers            int     `toml:"workers"`
	PollInterval       int     `toml:"poll_interval"`
	ErrorRetryInterval int     `toml:"error_retry_interval"`
	HeartbeatInterval  int     `toml:"heartbeat_interval"`
	HeartbeatTimeout   int     `toml:"heartbeat_timeout"`
	DurationEpsilon    float64 `toml:"duration_epsilon"`
}

// Converter contains ffmpeg/ffprobe settings and output defaults.
type Converter struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	Format            string `toml:"format"`
	Quality           string `toml:"quality"`
	AspectRatio       string `toml:"aspect_ratio"`
	Watermark         string `toml:"watermark"`
	Thumbnail         bool   `toml:"thumbnail"`
	ConversionTimeout int    `toml:"conversion_timeout"`
	ThumbnailTimeout  int    `toml:"thumbnail_timeout"`
	ProbeTimeout      int    `toml:"probe_timeout"`
}

// Export contains platform export settings.
type Export struct {
	ProfilesPath string `toml:"profiles_path"`
	Concurrency  int    `toml:"concurrency"`
}

// Notifications configures the optional webhook that receives every clip
// lifecycle envelope.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Capture identifies the recording device watched for removal.
type Capture struct {
	Device         string `toml:"device"`
	MonitorEnabled bool   `toml:"monitor_enabled"`
}

// Maintenance controls the periodic retention sweep.
type Maintenance struct {
	Schedule      string `toml:"schedule"`
	RetentionDays int    `toml:"retention_days"`
	DeleteFiles   bool   `toml:"delete_files"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Triggers: default trigger behaviour for new workflows
//   - Processor: queue worker counts, polling, and heartbeats
//   - Converter: ffmpeg/ffprobe binaries, defaults, and timeouts
//   - Export: platform profile overrides and fan-out limits
//   - Notifications: webhook delivery of clip lifecycle events
//   - Capture: recording device monitoring
//   - Maintenance: retention sweep schedule
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Triggers      Triggers      `toml:"triggers"`
	Processor     Processor     `toml:"processor"`
	Converter     Converter     `toml:"converter"`
	Export        Export        `toml:"export"`
	Notifications Notifications `toml:"notifications"`
	Capture       Capture       `toml:"capture"`
	Maintenance   Maintenance   `toml:"maintenance"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.OutputDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "clipforge.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "clipforged.lock")
}

// PIDPath returns the file the running daemon records its process ID in.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "clipforged.pid")
}

// DaemonLogPath returns the JSON log file the daemon appends to.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, "clipforged.log")
}

// ConversionTimeout returns the wall-clock bound for a single ffmpeg run.
func (c *Config) ConversionTimeout() time.Duration {
	return time.Duration(c.Converter.ConversionTimeout) * time.Second
}

// ThumbnailTimeout returns the wall-clock bound for thumbnail extraction.
func (c *Config) ThumbnailTimeout() time.Duration {
	return time.Duration(c.Converter.ThumbnailTimeout) * time.Second
}

// ProbeTimeout returns the wall-clock bound for one ffprobe call.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Converter.ProbeTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
