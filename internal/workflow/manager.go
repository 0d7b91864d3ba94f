package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
)

// Handler produces the clip for a claimed item. The returned Clip is not yet
// persisted; the manager assigns its ID.
type Handler interface {
	Name() string
	Process(ctx context.Context, item *queue.Item) (*queue.Clip, error)
}

// Manager coordinates queue processing across a worker pool.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	handler      Handler
	sink         notifications.Sink
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	retryDelay   time.Duration

	heartbeat *HeartbeatMonitor

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastErr  error
	lastItem *queue.Item
	active   map[string]struct{}
}

// NewManager constructs a workflow manager. A nil sink discards notifications.
func NewManager(cfg *config.Config, store *queue.Store, handler Handler, sink notifications.Sink, logger *slog.Logger) *Manager {
	if sink == nil {
		sink = notifications.Nop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	workers := cfg.Processor.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		handler:      handler,
		sink:         sink,
		logger:       logger,
		workers:      workers,
		pollInterval: seconds(cfg.Processor.PollInterval, time.Second),
		retryDelay:   seconds(cfg.Processor.ErrorRetryInterval, time.Second),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			seconds(cfg.Processor.HeartbeatInterval, 0),
			seconds(cfg.Processor.HeartbeatTimeout, 0),
		),
		active: make(map[string]struct{}),
	}
}

func seconds(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}
