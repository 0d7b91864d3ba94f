package daemonrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"clipforge/internal/autoclip"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/media/convert"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the clipforge daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		FilePath:    logFilePath(cfg),
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runID := uuid.NewString()[:8]
	logger = logger.With(logging.String("run_id", runID))

	logDependencySnapshot(logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	hub := notifications.NewHub()
	webhook := notifications.NewFromConfig(cfg, logger)
	if closer, ok := webhook.(io.Closer); ok {
		defer closer.Close()
	}
	sink := notifications.Multi(hub, webhook)

	autoClip := autoclip.New(store, sink,
		autoclip.WithLogger(logger),
		autoclip.WithDefaults(autoclip.DefaultsFromConfig(cfg)),
	)
	converter := convert.NewFromConfig(cfg, logger)
	pipeline := workflow.NewClipPipeline(cfg, store, converter, logger)
	workflowManager := workflow.NewManager(cfg, store, pipeline, sink, logger)

	optimizer, err := export.NewFromConfig(cfg, converter, logger)
	if err != nil {
		logging.WarnWithContext(logger, "platform profiles unavailable; exports disabled", "export_profiles_failed",
			logging.String("profiles_path", cfg.Export.ProfilesPath),
			logging.String(logging.FieldErrorHint, "fix or remove export.profiles_path"),
			logging.Error(err),
		)
		optimizer = nil
	}

	d, err := daemon.New(cfg, store, logger, daemon.Components{
		AutoClip:  autoClip,
		Workflow:  workflowManager,
		Optimizer: optimizer,
		Hub:       hub,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.String(logging.FieldErrorHint, "check for another running daemon and queue database access"),
			logging.String(logging.FieldImpact, "no clips will be captured or processed"),
			logging.Error(err),
		)
		return err
	}
	// Written only once the lock is held so a losing instance cannot clobber it.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("clipforge daemon shutting down")
	return nil
}

func logFilePath(cfg *config.Config) string {
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return ""
	}
	return cfg.DaemonLogPath()
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.Converter.FFmpegBinary
	ffprobe := cfg.Converter.FFprobeBinary
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("webhook_configured", strings.TrimSpace(cfg.Notifications.WebhookURL) != ""),
		logging.Bool("capture_monitor", cfg.Capture.MonitorEnabled),
		logging.Int("retention_days", cfg.Maintenance.RetentionDays),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
