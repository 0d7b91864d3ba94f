package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.handler == nil {
		m.mu.Unlock()
		return errors.New("workflow handler not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)
	for worker := range m.workers {
		logger := m.logger.With(logging.Int(logging.FieldWorker, worker))
		g.Go(func() error {
			m.runWorker(gctx, worker, logger)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(done)
	}()

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String("handler", m.handler.Name()),
	)
	return nil
}

// Stop cancels the workers and waits for in-flight items to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Manager) runWorker(ctx context.Context, worker int, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		// One worker is enough to sweep stale rows.
		if worker == 0 {
			if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reclaim stale processing failed; stuck items may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}

		item, err := m.store.NextPending(ctx)
		if err != nil {
			m.handleNextItemError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.wait(ctx, m.pollInterval)
			continue
		}

		claimed, err := m.store.StartProcessing(ctx, item.ID)
		if err != nil {
			if errors.Is(err, queue.ErrNotClaimed) || errors.Is(err, queue.ErrNotFound) {
				logger.Debug("item claimed elsewhere", logging.String(logging.FieldItemID, item.ID))
				continue
			}
			m.handleNextItemError(ctx, logger, err)
			continue
		}

		if err := m.processItem(ctx, logger, claimed); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (m *Manager) handleNextItemError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next queue item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.wait(ctx, m.retryDelay)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
