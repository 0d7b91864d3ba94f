package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/api"
	"clipforge/internal/autoclip"
	"clipforge/internal/capture"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/maintenance"
	"clipforge/internal/notifications"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

// Components are the long-lived collaborators the daemon starts and stops.
type Components struct {
	AutoClip  *autoclip.Manager
	Workflow  *workflow.Manager
	Optimizer *export.Optimizer
	Hub       *notifications.Hub
}

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	autoclip *autoclip.Manager
	workflow *workflow.Manager
	hub      *notifications.Hub

	optimizer *export.Optimizer
	monitor   *capture.Monitor
	sweeper   *maintenance.Sweeper

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	server  *api.Server
	deps    []deps.Status
	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, comps Components) (*Daemon, error) {
	if cfg == nil || store == nil || comps.AutoClip == nil || comps.Workflow == nil {
		return nil, errors.New("daemon requires config, store, auto-clip manager, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if comps.Hub == nil {
		comps.Hub = notifications.NewHub()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		autoclip:  comps.AutoClip,
		workflow:  comps.Workflow,
		hub:       comps.Hub,
		optimizer: comps.Optimizer,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		sweeper:   maintenance.New(cfg, store, logger),
	}
	d.monitor = capture.New(cfg, logger, d.handleDeviceRemoved)
	return d, nil
}

// newServer builds a fresh HTTP server; an http.Server cannot serve again
// after Shutdown.
func (d *Daemon) newServer() *api.Server {
	return api.NewServer(api.ServerConfig{
		Bind:      d.cfg.Paths.APIBind,
		Store:     d.store,
		AutoClip:  d.autoclip,
		Workflow:  d.workflow,
		Optimizer: d.optimizer,
		Hub:       d.hub,
		ExportDir: filepath.Join(d.cfg.Paths.OutputDir, "exports"),
		Logger:    d.logger,
		Status:    d.Status,
	})
}

// Start acquires the daemon lock, recovers interrupted work, and launches the
// processor, device monitor, maintenance schedule, and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.startServices(runCtx); err != nil {
		cancel()
		d.stopServices()
		_ = d.lock.Unlock()
		return err
	}

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
	)
	return nil
}

func (d *Daemon) startServices(ctx context.Context) error {
	d.runPreflight(ctx)

	if reset, err := d.store.ResetStuckProcessing(ctx); err != nil {
		return fmt.Errorf("reset processing items: %w", err)
	} else if reset > 0 {
		d.logger.Info("interrupted items returned to pending",
			logging.String(logging.FieldEventType, "processing_reset"),
			logging.Int64("count", reset),
		)
	}
	if _, err := d.autoclip.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate active clips: %w", err)
	}
	if err := d.workflow.Start(ctx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.monitor.Start(ctx); err != nil {
		return fmt.Errorf("start capture monitor: %w", err)
	}
	if err := d.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}
	server := d.newServer()
	d.mu.Lock()
	d.server = server
	d.mu.Unlock()
	if err := server.Start(); err != nil {
		return fmt.Errorf("start api: %w", err)
	}
	return nil
}

func (d *Daemon) runPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "clip processing or exports may fail"),
		)
	}
	statuses := preflight.CheckSystemDeps(ctx, d.cfg)
	d.mu.Lock()
	d.deps = statuses
	d.mu.Unlock()
}

// Stop shuts services down in reverse start order and releases the lock.
// Recording clips keep their rows so the next start can rehydrate them.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	d.stopServices()
	if cancel != nil {
		cancel()
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
		)
	}
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) stopServices() {
	d.mu.Lock()
	server := d.server
	d.mu.Unlock()
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(ctx); err != nil {
			logging.WarnWithContext(d.logger, "api shutdown incomplete", "api_shutdown_failed", logging.Error(err))
		}
		cancel()
	}
	d.sweeper.Stop()
	d.monitor.Stop()
	if n := d.autoclip.Suspend(); n > 0 {
		d.logger.Info("recording clips left for rehydration", logging.Int("count", n))
	}
	d.workflow.Stop()
}

// Close stops the daemon and ends event streams. The store belongs to the
// caller.
func (d *Daemon) Close() error {
	d.Stop()
	d.hub.Close()
	return nil
}

// handleDeviceRemoved ends every recording clip when the capture device goes
// away; nothing more can be recorded for them.
func (d *Daemon) handleDeviceRemoved(ctx context.Context, device string) int {
	ended := d.autoclip.StopAll(ctx)
	d.logger.Info("capture device removed",
		logging.String(logging.FieldEventType, "capture_device_removed"),
		logging.String("device", device),
		logging.Int("clips_ended", ended),
	)
	return ended
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the bound HTTP address, or the configured bind before
// Start.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	server := d.server
	d.mu.Unlock()
	if server == nil {
		return d.cfg.Paths.APIBind
	}
	return server.Addr()
}

// LockPath returns the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	d.mu.Lock()
	statuses := d.deps
	d.mu.Unlock()
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
		Workflow:     api.FromStatusSummary(d.workflow.Status(ctx)),
		ActiveClips:  api.FromActiveClips(d.autoclip.Active()),
		Subscribers:  d.hub.Subscribers(),
		Dependencies: api.FromDependencies(statuses),
	}
}
