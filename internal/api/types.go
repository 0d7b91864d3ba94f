package api

import "clipforge/internal/trigger"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a clip queue entry in a transport-friendly format.
type QueueItem struct {
	ID                string   `json:"id"`
	SessionID         string   `json:"sessionId"`
	ClipID            string   `json:"clipId,omitempty"`
	Status            string   `json:"status"`
	Trigger           string   `json:"trigger"`
	TriggerType       string   `json:"triggerType"`
	TriggerSource     string   `json:"triggerSource"`
	TriggerConfidence *float64 `json:"triggerConfidence,omitempty"`
	T0                float64  `json:"t0"`
	T1                *float64 `json:"t1,omitempty"`
	Duration          *float64 `json:"duration,omitempty"`
	Title             string   `json:"title,omitempty"`
	ThumbnailPath     string   `json:"thumbnailPath,omitempty"`
	ErrorMessage      string   `json:"errorMessage,omitempty"`
	Attempts          int      `json:"attempts"`
	LastHeartbeat     string   `json:"lastHeartbeat,omitempty"`
	CreatedAt         string   `json:"createdAt,omitempty"`
	UpdatedAt         string   `json:"updatedAt,omitempty"`
}

// Session describes a recording session.
type Session struct {
	ID         string `json:"id"`
	Workflow   string `json:"workflow"`
	SourcePath string `json:"sourcePath,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// Clip describes a finished clip artifact.
type Clip struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"sessionId"`
	QueueItemID   string  `json:"queueItemId"`
	Path          string  `json:"path"`
	Duration      float64 `json:"duration"`
	FileSize      int64   `json:"fileSize"`
	ThumbnailPath string  `json:"thumbnailPath,omitempty"`
	CreatedAt     string  `json:"createdAt,omitempty"`
}

// TriggerConfig mirrors a workflow's trigger settings.
type TriggerConfig struct {
	Workflow         string `json:"workflow"`
	AudioEnabled     bool   `json:"audioEnabled"`
	VisualEnabled    bool   `json:"visualEnabled"`
	AutoClipEnabled  bool   `json:"autoClipEnabled"`
	AutoClipDuration int    `json:"autoClipDuration"`
	CooldownSeconds  int    `json:"cooldownSeconds"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// ActiveClip describes a clip that is currently recording.
type ActiveClip struct {
	ItemID    string  `json:"itemId"`
	SessionID string  `json:"sessionId"`
	Trigger   string  `json:"trigger"`
	T0        float64 `json:"t0"`
	StartedAt string  `json:"startedAt"`
	AutoEnd   bool    `json:"autoEnd"`
	Deadline  string  `json:"deadline,omitempty"`
}

// WorkflowStatus summarizes queue processor state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Workers     int            `json:"workers"`
	Handler     string         `json:"handler,omitempty"`
	ActiveItems []string       `json:"activeItems"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	APIAddress   string             `json:"apiAddress,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	ActiveClips  []ActiveClip       `json:"activeClips"`
	Subscribers  int                `json:"subscribers"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// HealthResponse answers GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptimeS"`
	DBOK    bool   `json:"dbOk"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// StartSessionRequest is the body of POST /api/sessions.
type StartSessionRequest struct {
	ID         string `json:"id,omitempty"`
	Workflow   string `json:"workflow,omitempty"`
	SourcePath string `json:"sourcePath"`
}

// TriggerRequest is the body of POST /api/sessions/{id}/triggers.
type TriggerRequest = trigger.Request

// TriggerResponse answers POST /api/sessions/{id}/triggers.
type TriggerResponse struct {
	Accepted bool       `json:"accepted"`
	Item     *QueueItem `json:"item,omitempty"`
}

// EndClipRequest is the optional body of POST /api/queue/{id}/end.
type EndClipRequest struct {
	T1 *float64 `json:"t1,omitempty"`
}

// EndResponse answers the end endpoints. Item is nil when nothing was recording.
type EndResponse struct {
	Ended bool       `json:"ended"`
	Item  *QueueItem `json:"item,omitempty"`
}

// ExportRequest is the body of POST /api/clips/{id}/export.
type ExportRequest struct {
	Platforms []string `json:"platforms"`
	Format    string   `json:"format,omitempty"`
	Quality   string   `json:"quality,omitempty"`
	Watermark string   `json:"watermark,omitempty"`
}

// ExportResult describes one platform rendition.
type ExportResult struct {
	Platform    string  `json:"platform"`
	Format      string  `json:"format,omitempty"`
	AspectRatio string  `json:"aspectRatio,omitempty"`
	OutputPath  string  `json:"outputPath,omitempty"`
	FileSize    int64   `json:"fileSize,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Error       string  `json:"error,omitempty"`
	ErrorKind   string  `json:"errorKind,omitempty"`
}

// ExportResponse answers POST /api/clips/{id}/export.
type ExportResponse struct {
	ClipID  string         `json:"clipId"`
	Results []ExportResult `json:"results"`
}
