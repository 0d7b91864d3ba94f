package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"clipforge/internal/config"
	"clipforge/internal/logging"
)

// RemovalHandler reacts to the capture device going away. It returns the
// number of clips it ended.
type RemovalHandler func(ctx context.Context, device string) int

// Monitor listens for udev events on the configured capture device.
type Monitor struct {
	logger   *slog.Logger
	onRemove RemovalHandler
	device   string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New creates a monitor for cfg.Capture.Device. It returns nil when
// monitoring is disabled or no device is configured; a nil Monitor is safe
// to Start and Stop.
func New(cfg *config.Config, logger *slog.Logger, onRemove RemovalHandler) *Monitor {
	if cfg == nil || !cfg.Capture.MonitorEnabled {
		return nil
	}
	device := strings.TrimSpace(cfg.Capture.Device)
	if device == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		logger:   logging.NewComponentLogger(logger, "capture-monitor"),
		onRemove: onRemove,
		device:   device,
	}
}

// Device returns the watched device path.
func (m *Monitor) Device() string {
	if m == nil {
		return ""
	}
	return m.device
}

// Start begins listening for udev netlink events. A failed connect is logged
// and otherwise ignored: capture keeps working, only device-loss detection
// is lost.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; device removal will go unnoticed", "netlink_connect_failed",
			logging.String(logging.FieldErrorHint, "ensure the daemon may open NETLINK_KOBJECT_UEVENT sockets"),
			logging.String(logging.FieldImpact, "clips keep recording if the capture device disconnects"),
			logging.Error(err),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("capture monitor started",
		logging.String(logging.FieldEventType, "capture_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("capture monitor stopped",
		logging.String(logging.FieldEventType, "capture_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(events, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device removal detection may be affected"),
				logging.Error(err),
			)
		}
	}
}

// buildMatcher matches video4linux add and remove events.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if devname != m.device {
		m.logger.Debug("ignoring event for other device",
			logging.String("device", devname),
			logging.String("configured_device", m.device),
		)
		return
	}

	switch uevent.Action {
	case netlink.ADD:
		m.logger.Info("capture device connected",
			logging.String(logging.FieldEventType, "capture_device_added"),
			logging.String("device", devname),
		)
	case netlink.REMOVE:
		ended := 0
		if m.onRemove != nil {
			ended = m.onRemove(ctx, devname)
		}
		logging.WarnWithContext(m.logger, "capture device removed; active clips ended", "capture_device_removed",
			logging.String("device", devname),
			logging.Int("clips_ended", ended),
			logging.String(logging.FieldImpact, "triggers produce clips from a source that is no longer recording"),
			logging.String(logging.FieldErrorHint, "reconnect the capture device"),
		)
	}
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
