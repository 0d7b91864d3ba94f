package workflow

import (
	"context"
	"errors"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
)

func (m *Manager) publish(ctx context.Context, env notifications.Envelope) {
	if err := m.sink.Publish(ctx, env); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, notification skipped")
			return
		}
		m.logger.Warn("queue notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldImpact, "subscribers missed a queue update"),
		)
	}
}
