package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"clipforge/internal/autoclip"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

// ServerConfig carries the collaborators the handlers close over.
type ServerConfig struct {
	Bind      string
	Store     *queue.Store
	AutoClip  *autoclip.Manager
	Workflow  *workflow.Manager
	Optimizer *export.Optimizer
	Hub       *notifications.Hub
	ExportDir string
	Logger    *slog.Logger
	StartTime time.Time
	// Status reports daemon-level state for GET /api/status. When nil the
	// handler builds a status from the workflow and auto-clip managers.
	Status func(ctx context.Context) DaemonStatus
	// KeepAlive is the SSE comment interval. Zero uses 15 seconds.
	KeepAlive time.Duration
}

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	bind       string

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer builds a server for cfg. Call Start to begin listening.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	cfg.Logger = logging.NewComponentLogger(cfg.Logger, "api")
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	// Request contexts end when Shutdown begins so event streams release
	// their connections.
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		httpServer: &http.Server{
			Handler:           NewRouter(cfg),
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Event streams hold the response open.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
		bind:   cfg.Bind,
	}
	srv.httpServer.RegisterOnShutdown(cancel)
	return srv
}

// Start binds the listener and serves in the background. It returns once the
// socket is open so Addr reports the bound address.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logging.String("addr", listener.Addr().String()))
	go func() {
		defer close(done)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "http server stopped", "api_serve_failed",
				logging.String(logging.FieldImpact, "API unavailable until restart"),
				logging.Error(err),
			)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}

// Addr returns the bound address, or the configured bind before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}
