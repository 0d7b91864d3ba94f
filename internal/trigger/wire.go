package trigger

import (
	"fmt"
	"strings"

	"clipforge/internal/queue"
)

// Wire is the trigger vocabulary used in notification payloads and API bodies.
type Wire string

const (
	WireVoice   Wire = "voice"
	WireGesture Wire = "gesture"
	WireButton  Wire = "button"
)

// ToWire translates a persisted trigger type to its wire name.
func ToWire(t queue.TriggerType) Wire {
	switch t {
	case queue.TriggerAudio:
		return WireVoice
	case queue.TriggerVisual:
		return WireGesture
	case queue.TriggerManual:
		return WireButton
	}
	return Wire(strings.ToLower(string(t)))
}

// FromWire translates a wire name back to the persisted trigger type.
func FromWire(w string) (queue.TriggerType, error) {
	switch Wire(strings.ToLower(strings.TrimSpace(w))) {
	case WireVoice:
		return queue.TriggerAudio, nil
	case WireGesture:
		return queue.TriggerVisual, nil
	case WireButton:
		return queue.TriggerManual, nil
	}
	return "", fmt.Errorf("trigger: unknown wire kind %q", w)
}

// Request is the wire-level trigger body accepted by the API.
type Request struct {
	Kind       string   `json:"kind"`
	Label      string   `json:"label,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	T          float64  `json:"t"`
}

// FromRequest normalizes an API request for sessionID.
func FromRequest(sessionID string, req Request) (Event, error) {
	kind, err := FromWire(req.Kind)
	if err != nil {
		return Event{}, err
	}
	confidence := 0.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	switch kind {
	case queue.TriggerAudio:
		return FromAudio(AudioMatch{SessionID: sessionID, Phrase: req.Label, Confidence: confidence, T: req.T}), nil
	case queue.TriggerVisual:
		return FromVisual(VisualMatch{SessionID: sessionID, Label: req.Label, Confidence: confidence, T: req.T}), nil
	default:
		return FromManual(ManualPress{SessionID: sessionID, T: req.T}), nil
	}
}
