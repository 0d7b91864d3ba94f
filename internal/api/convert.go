package api

import (
	"slices"
	"time"

	"clipforge/internal/autoclip"
	"clipforge/internal/deps"
	"clipforge/internal/export"
	"clipforge/internal/media/convert"
	"clipforge/internal/queue"
	"clipforge/internal/trigger"
	"clipforge/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:                item.ID,
		SessionID:         item.SessionID,
		ClipID:            item.ClipID,
		Status:            string(item.Status),
		Trigger:           string(trigger.ToWire(item.TriggerType)),
		TriggerType:       string(item.TriggerType),
		TriggerSource:     item.TriggerSource,
		TriggerConfidence: item.TriggerConfidence,
		T0:                item.T0,
		T1:                item.T1,
		Title:             item.Title,
		ThumbnailPath:     item.ThumbnailPath,
		ErrorMessage:      item.ErrorMessage,
		Attempts:          item.Attempts,
		CreatedAt:         formatTime(item.CreatedAt),
		UpdatedAt:         formatTime(item.UpdatedAt),
	}
	if window, ok := item.Window(); ok {
		dto.Duration = &window
	}
	if item.LastHeartbeat != nil {
		dto.LastHeartbeat = formatTime(*item.LastHeartbeat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records.
func FromQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromSession converts a session row.
func FromSession(s *queue.Session) Session {
	if s == nil {
		return Session{}
	}
	return Session{
		ID:         s.ID,
		Workflow:   s.Workflow,
		SourcePath: s.SourcePath,
		CreatedAt:  formatTime(s.CreatedAt),
	}
}

// FromClip converts a clip row.
func FromClip(c *queue.Clip) Clip {
	if c == nil {
		return Clip{}
	}
	return Clip{
		ID:            c.ID,
		SessionID:     c.SessionID,
		QueueItemID:   c.QueueItemID,
		Path:          c.Path,
		Duration:      c.Duration,
		FileSize:      c.FileSize,
		ThumbnailPath: c.ThumbnailPath,
		CreatedAt:     formatTime(c.CreatedAt),
	}
}

// FromTriggerConfig converts a trigger configuration.
func FromTriggerConfig(c queue.TriggerConfig) TriggerConfig {
	return TriggerConfig{
		Workflow:         c.Workflow,
		AudioEnabled:     c.AudioEnabled,
		VisualEnabled:    c.VisualEnabled,
		AutoClipEnabled:  c.AutoClipEnabled,
		AutoClipDuration: c.AutoClipDuration,
		CooldownSeconds:  c.CooldownSeconds,
		UpdatedAt:        formatTime(c.UpdatedAt),
	}
}

// ToTriggerConfig converts an API trigger configuration for storage.
func ToTriggerConfig(workflowName string, c TriggerConfig) queue.TriggerConfig {
	return queue.TriggerConfig{
		Workflow:         workflowName,
		AudioEnabled:     c.AudioEnabled,
		VisualEnabled:    c.VisualEnabled,
		AutoClipEnabled:  c.AutoClipEnabled,
		AutoClipDuration: c.AutoClipDuration,
		CooldownSeconds:  c.CooldownSeconds,
	}
}

// FromActiveClips converts working-set snapshots, ordered by start time.
func FromActiveClips(clips []autoclip.ActiveClip) []ActiveClip {
	sorted := slices.Clone(clips)
	slices.SortFunc(sorted, func(a, b autoclip.ActiveClip) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	out := make([]ActiveClip, 0, len(sorted))
	for _, c := range sorted {
		dto := ActiveClip{
			ItemID:    c.ItemID,
			SessionID: c.SessionID,
			Trigger:   string(trigger.ToWire(c.TriggerType)),
			T0:        c.T0,
			StartedAt: formatTime(c.StartedAt),
			AutoEnd:   c.AutoEnd,
		}
		if c.AutoEnd {
			dto.Deadline = formatTime(c.Deadline)
		}
		out = append(out, dto)
	}
	return out
}

// FromStatusSummary converts the workflow status summary.
func FromStatusSummary(s workflow.StatusSummary) WorkflowStatus {
	dto := WorkflowStatus{
		Running:     s.Running,
		Workers:     s.Workers,
		Handler:     s.Handler,
		ActiveItems: append([]string(nil), s.ActiveItems...),
		QueueStats:  FromQueueStats(s.QueueStats),
		LastError:   s.LastError,
	}
	if dto.ActiveItems == nil {
		dto.ActiveItems = []string{}
	}
	if s.LastItem != nil {
		item := FromQueueItem(s.LastItem)
		dto.LastItem = &item
	}
	return dto
}

// FromQueueStats converts status counts to string keys, including zeroes for
// every known status.
func FromQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromDependencies converts dependency check results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

// FromExportOutcomes converts optimizer outcomes in input order.
func FromExportOutcomes(outcomes []export.Outcome) []ExportResult {
	out := make([]ExportResult, 0, len(outcomes))
	for _, o := range outcomes {
		res := ExportResult{Platform: string(o.Platform)}
		if o.Err != nil {
			res.Error = o.Err.Error()
			res.ErrorKind = string(convert.KindOf(o.Err))
			out = append(out, res)
			continue
		}
		res.Format = o.Result.Format
		res.AspectRatio = o.Result.AspectRatio
		res.OutputPath = o.Result.OutputPath
		res.FileSize = o.Result.FileSize
		res.Duration = o.Result.Duration
		out = append(out, res)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
