package main

import (
	"fmt"
	"sort"
	"strings"

	"clipforge/internal/api"
)

const shortIDLength = 8

func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	sorted := api.SortQueueItemsNewestFirst(items)
	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			item.ID,
			shortID(item.SessionID),
			formatStatusLabel(item.Status),
			api.TriggerLabel(item),
			api.WindowLabel(item),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func buildSessionRows(sessions []api.Session) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		source := strings.TrimSpace(s.SourcePath)
		if source == "" {
			source = "-"
		}
		rows = append(rows, []string{s.ID, s.Workflow, source, formatDisplayTime(s.CreatedAt)})
	}
	return rows
}

func buildActiveClipRows(clips []api.ActiveClip) [][]string {
	rows := make([][]string, 0, len(clips))
	for _, clip := range clips {
		autoEnd := "-"
		if clip.AutoEnd {
			autoEnd = formatDisplayTime(clip.Deadline)
		}
		rows = append(rows, []string{
			shortID(clip.ItemID),
			shortID(clip.SessionID),
			clip.Trigger,
			fmt.Sprintf("%.1fs", clip.T0),
			autoEnd,
		})
	}
	return rows
}

func buildExportRows(results []api.ExportResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		outcome := r.OutputPath
		if r.Error != "" {
			outcome = "error: " + r.Error
		}
		rows = append(rows, []string{r.Platform, r.AspectRatio, formatBytes(r.FileSize), outcome})
	}
	return rows
}

// describeItem renders the multi-line detail view for `queue show`.
func describeItem(item api.QueueItem) []string {
	lines := []string{
		fmt.Sprintf("ID:        %s", item.ID),
		fmt.Sprintf("Session:   %s", item.SessionID),
		fmt.Sprintf("Status:    %s", formatStatusLabel(item.Status)),
		fmt.Sprintf("Trigger:   %s", api.TriggerLabel(item)),
		fmt.Sprintf("Window:    %s", api.WindowLabel(item)),
		fmt.Sprintf("Attempts:  %d", item.Attempts),
		fmt.Sprintf("Created:   %s", formatDisplayTime(item.CreatedAt)),
		fmt.Sprintf("Updated:   %s", formatDisplayTime(item.UpdatedAt)),
	}
	if item.Title != "" {
		lines = append(lines, fmt.Sprintf("Title:     %s", item.Title))
	}
	if item.ClipID != "" {
		lines = append(lines, fmt.Sprintf("Clip:      %s", item.ClipID))
	}
	if item.ThumbnailPath != "" {
		lines = append(lines, fmt.Sprintf("Thumbnail: %s", item.ThumbnailPath))
	}
	if item.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("Error:     %s", item.ErrorMessage))
	}
	return lines
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	t := api.ParseQueueTime(value)
	if t.IsZero() {
		return value
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatBytes(size int64) string {
	const unit = 1024
	if size <= 0 {
		return "-"
	}
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}
