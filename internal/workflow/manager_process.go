package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

const stageName = "clip"

func (m *Manager) processItem(ctx context.Context, workerLogger *slog.Logger, item *queue.Item) error {
	itemCtx := services.WithItemID(ctx, item.ID)
	itemCtx = services.WithSessionID(itemCtx, item.SessionID)
	itemCtx = services.WithStage(itemCtx, stageName)
	itemCtx = services.WithRequestID(itemCtx, uuid.NewString())
	logger := logging.WithContext(itemCtx, workerLogger)

	m.trackActive(item.ID, true)
	defer m.trackActive(item.ID, false)

	m.publish(itemCtx, notifications.QueueUpdated(item))

	window, _ := item.Window()
	started := time.Now()
	logger.Info("clip processing started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Float64("t0", item.T0),
		logging.OptionalFloat("t1", item.T1),
		logging.Float64("window_seconds", window),
		logging.Int("attempt", item.Attempts),
	)

	hbCtx, stopHeartbeat := context.WithCancel(itemCtx)
	var hbWG sync.WaitGroup
	if m.heartbeat.Enabled() {
		hbWG.Add(1)
		go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)
	}
	clip, err := m.handler.Process(itemCtx, item)
	stopHeartbeat()
	hbWG.Wait()

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// Shutdown mid-item: leave it PROCESSING so startup recovery requeues it.
			logger.Info("clip processing interrupted by shutdown")
			return err
		}
		m.handleFailure(ctx, logger, item, err)
		return err
	}
	return m.complete(ctx, logger, item, clip, time.Since(started))
}

func (m *Manager) complete(ctx context.Context, logger *slog.Logger, item *queue.Item, clip *queue.Clip, elapsed time.Duration) error {
	if clip == nil {
		err := services.Wrap(services.ErrValidation, stageName, "complete", "handler returned no clip", nil)
		m.handleFailure(ctx, logger, item, err)
		return err
	}
	clip.SessionID = item.SessionID
	clip.QueueItemID = item.ID
	saved, err := m.store.CreateClip(ctx, *clip)
	if err != nil {
		m.handleFailure(ctx, logger, item, err)
		return err
	}
	updated, err := m.store.CompleteProcessing(ctx, item.ID, saved.ID, saved.ThumbnailPath)
	if err != nil {
		logger.Error("failed to persist completion",
			logging.Error(err),
			logging.String(logging.FieldEventType, "complete_persist_failed"),
			logging.String(logging.FieldErrorHint, "item may have been reclaimed or cancelled"),
		)
		m.setLastError(err)
		return err
	}
	logger.Info("clip processing completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("clip_id", saved.ID),
		logging.String("path", saved.Path),
		logging.Float64("duration_seconds", saved.Duration),
		logging.Int64("size_bytes", saved.FileSize),
		logging.Duration("elapsed", elapsed),
	)
	m.setLastItem(updated)
	m.publish(ctx, notifications.QueueUpdated(updated))
	return nil
}

func (m *Manager) trackActive(id string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on {
		m.active[id] = struct{}{}
	} else {
		delete(m.active, id)
	}
}
