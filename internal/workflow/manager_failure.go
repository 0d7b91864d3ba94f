package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/media/convert"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, item *queue.Item, stageErr error) {
	message := classifyFailure(stageErr)

	attrs := append(logging.FailureAttrs(stageErr),
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldEventType, "stage_failure"),
	)
	if code := convert.KindOf(stageErr); code != "" {
		attrs = append(attrs, logging.String("error_code", string(code)))
	}
	logger.Error("clip processing failed", logging.Args(attrs...)...)

	updated, err := m.store.FailProcessing(ctx, item.ID, message)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not record failure")
		} else {
			logger.Error("failed to persist failure", logging.Error(err))
		}
		m.setLastError(stageErr)
		return
	}
	m.setLastError(stageErr)
	m.setLastItem(updated)
	m.publish(ctx, notifications.QueueUpdated(updated))
}

func classifyFailure(err error) string {
	if err == nil {
		return "clip processing failed without error detail"
	}
	message := strings.TrimSpace(services.Details(err).Message)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = "clip processing failed"
	}
	return message
}

// Retry moves a FAILED item back to PENDING and clears its error.
func (m *Manager) Retry(ctx context.Context, id string) (*queue.Item, error) {
	item, err := m.store.Retry(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithItemID(ctx, id), m.logger).Info("item requeued",
		logging.String(logging.FieldEventType, "item_retry"),
	)
	m.publish(ctx, notifications.QueueUpdated(item))
	return item, nil
}

// RetryAllFailed requeues every FAILED item.
func (m *Manager) RetryAllFailed(ctx context.Context) (int64, error) {
	count, err := m.store.RetryAllFailed(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		m.logger.Info("failed items requeued", logging.Int64("count", count))
	}
	return count, nil
}
