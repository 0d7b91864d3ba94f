package trigger

import (
	"fmt"
	"math"
	"strings"

	"clipforge/internal/queue"
)

// ManualSource is the source label recorded for manual triggers.
const ManualSource = "manual"

// AudioMatch is a spoken phrase matched by the audio detector.
type AudioMatch struct {
	SessionID  string
	Phrase     string
	Confidence float64
	T          float64
}

// VisualMatch is a label reported by the vision detector.
type VisualMatch struct {
	SessionID  string
	Label      string
	Confidence float64
	T          float64
}

// ManualPress is an operator button press.
type ManualPress struct {
	SessionID string
	T         float64
}

// Event is the canonical trigger handed to the auto-clip manager. Confidence
// is nil for manual triggers.
type Event struct {
	Type        queue.TriggerType
	SessionID   string
	T           float64
	SourceLabel string
	Confidence  *float64
}

// IsManual reports whether the event came from an operator action.
func (e Event) IsManual() bool {
	return e.Type == queue.TriggerManual
}

// FromAudio normalizes an audio phrase match.
func FromAudio(m AudioMatch) Event {
	confidence := clampConfidence(m.Confidence)
	return Event{
		Type:        queue.TriggerAudio,
		SessionID:   strings.TrimSpace(m.SessionID),
		T:           m.T,
		SourceLabel: strings.TrimSpace(m.Phrase),
		Confidence:  &confidence,
	}
}

// FromVisual normalizes a visual detection.
func FromVisual(m VisualMatch) Event {
	confidence := clampConfidence(m.Confidence)
	return Event{
		Type:        queue.TriggerVisual,
		SessionID:   strings.TrimSpace(m.SessionID),
		T:           m.T,
		SourceLabel: strings.TrimSpace(m.Label),
		Confidence:  &confidence,
	}
}

// FromManual normalizes a manual press.
func FromManual(m ManualPress) Event {
	return Event{
		Type:        queue.TriggerManual,
		SessionID:   strings.TrimSpace(m.SessionID),
		T:           m.T,
		SourceLabel: ManualSource,
	}
}

// Normalize dispatches over the supported input shapes (values or pointers).
func Normalize(input any) (Event, error) {
	switch v := input.(type) {
	case AudioMatch:
		return FromAudio(v), nil
	case *AudioMatch:
		if v != nil {
			return FromAudio(*v), nil
		}
	case VisualMatch:
		return FromVisual(v), nil
	case *VisualMatch:
		if v != nil {
			return FromVisual(*v), nil
		}
	case ManualPress:
		return FromManual(v), nil
	case *ManualPress:
		if v != nil {
			return FromManual(*v), nil
		}
	case Event:
		return v, nil
	}
	return Event{}, fmt.Errorf("trigger: unsupported input %T", input)
}

func clampConfidence(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Max(0, math.Min(1, value))
}
