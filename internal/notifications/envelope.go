package notifications

import (
	"time"

	"github.com/google/uuid"

	"clipforge/internal/queue"
	"clipforge/internal/trigger"
)

// Type names the lifecycle event an envelope carries.
type Type string

const (
	TypeClipIntentStart  Type = "CLIP_INTENT_START"
	TypeClipIntentEnd    Type = "CLIP_INTENT_END"
	TypeClipQueueUpdated Type = "CLIP_QUEUE_UPDATED"
)

// StatusCancelled marks a queue-updated payload for an item that was deleted
// before completion. It is never persisted.
const StatusCancelled = "CANCELLED"

// Payload holds event-specific fields.
type Payload map[string]any

// Envelope is the unit delivered to every subscriber.
type Envelope struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	TS        time.Time `json:"ts"`
	Type      Type      `json:"type"`
	Payload   Payload   `json:"payload"`
}

func newEnvelope(sessionID string, typ Type, payload Payload) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		TS:        time.Now().UTC(),
		Type:      typ,
		Payload:   payload,
	}
}

// IntentStart announces that a trigger opened a clip at item.T0.
func IntentStart(item *queue.Item) Envelope {
	return newEnvelope(item.SessionID, TypeClipIntentStart, intentPayload(item, item.T0))
}

// IntentEnd announces that recording for item stopped at item.T1.
func IntentEnd(item *queue.Item) Envelope {
	end := item.T0
	if item.T1 != nil {
		end = *item.T1
	}
	payload := intentPayload(item, end)
	payload["t0"] = item.T0
	return newEnvelope(item.SessionID, TypeClipIntentEnd, payload)
}

// QueueUpdated carries a full snapshot of item.
func QueueUpdated(item *queue.Item) Envelope {
	return newEnvelope(item.SessionID, TypeClipQueueUpdated, Snapshot(item))
}

// QueueCancelled reports that item was removed before it completed.
func QueueCancelled(item *queue.Item) Envelope {
	payload := Snapshot(item)
	payload["status"] = StatusCancelled
	return newEnvelope(item.SessionID, TypeClipQueueUpdated, payload)
}

func intentPayload(item *queue.Item, t float64) Payload {
	payload := Payload{
		"queueItemId": item.ID,
		"t":           t,
		"source":      item.TriggerSource,
		"trigger":     string(trigger.ToWire(item.TriggerType)),
	}
	if item.TriggerConfidence != nil {
		payload["confidence"] = *item.TriggerConfidence
	}
	return payload
}

// Snapshot renders the wire view of a queue item. Trigger types use the
// voice/gesture/button vocabulary. Every key is present; unset optional
// fields are nil so a snapshot replaces, rather than merges into, the
// previous one.
func Snapshot(item *queue.Item) Payload {
	payload := Payload{
		"id":                item.ID,
		"sessionId":         item.SessionID,
		"status":            string(item.Status),
		"triggerType":       string(trigger.ToWire(item.TriggerType)),
		"triggerSource":     item.TriggerSource,
		"triggerConfidence": nil,
		"t0":                item.T0,
		"t1":                nil,
		"attempts":          item.Attempts,
		"createdAt":         item.CreatedAt,
		"updatedAt":         item.UpdatedAt,
	}
	if item.TriggerConfidence != nil {
		payload["triggerConfidence"] = *item.TriggerConfidence
	}
	if item.T1 != nil {
		payload["t1"] = *item.T1
	}
	optional := map[string]string{
		"clipId":        item.ClipID,
		"thumbnailPath": item.ThumbnailPath,
		"title":         item.Title,
		"errorMessage":  item.ErrorMessage,
	}
	for key, value := range optional {
		if value == "" {
			payload[key] = nil
			continue
		}
		payload[key] = value
	}
	return payload
}
