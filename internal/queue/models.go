package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a clip queue item.
type Status string

const (
	StatusRecording  Status = "RECORDING"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var allStatuses = []Status{
	StatusRecording,
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts user input to a Status.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// TriggerType is the persisted kind of signal that started a clip.
type TriggerType string

const (
	TriggerAudio  TriggerType = "AUDIO"
	TriggerVisual TriggerType = "VISUAL"
	TriggerManual TriggerType = "MANUAL"
)

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerAudio, TriggerVisual, TriggerManual:
		return true
	}
	return false
}

// Item represents a clip queue item persisted in SQLite.
type Item struct {
	ID                string
	SessionID         string
	ClipID            string
	Status            Status
	TriggerType       TriggerType
	TriggerSource     string
	TriggerConfidence *float64
	T0                float64
	T1                *float64
	ThumbnailPath     string
	Title             string
	ErrorMessage      string
	Attempts          int
	LastHeartbeat     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Window returns the clip duration in seconds once recording has ended.
func (i *Item) Window() (float64, bool) {
	if i == nil || i.T1 == nil {
		return 0, false
	}
	return *i.T1 - i.T0, true
}

// NewItem carries the fields required to create a RECORDING item.
type NewItem struct {
	SessionID         string
	TriggerType       TriggerType
	TriggerSource     string
	TriggerConfidence *float64
	T0                float64
	Title             string
}

// Session is one continuous recording that clips are cut from.
type Session struct {
	ID         string
	Workflow   string
	SourcePath string
	CreatedAt  time.Time
}

// Clip is the finished artifact produced for a queue item.
type Clip struct {
	ID            string
	SessionID     string
	QueueItemID   string
	Path          string
	Duration      float64
	FileSize      int64
	ThumbnailPath string
	CreatedAt     time.Time
}

// DefaultAutoClipDuration is the auto-clip length, in seconds, used when a
// workflow does not configure one.
const DefaultAutoClipDuration = 60

// TriggerConfig holds the per-workflow trigger settings.
type TriggerConfig struct {
	Workflow         string
	AudioEnabled     bool
	VisualEnabled    bool
	AutoClipEnabled  bool
	AutoClipDuration int
	CooldownSeconds  int
	UpdatedAt        time.Time
}

// AutoClipWindow returns the auto-clip duration as a time.Duration.
func (c TriggerConfig) AutoClipWindow() time.Duration {
	seconds := c.AutoClipDuration
	if seconds <= 0 {
		seconds = DefaultAutoClipDuration
	}
	return time.Duration(seconds) * time.Second
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Recording  int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}
