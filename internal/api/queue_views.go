package api

import (
	"fmt"
	"sort"
	"time"
)

// SortQueueItemsNewestFirst orders queue items by CreatedAt descending, breaking ties by ID descending.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]QueueItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseQueueTime exposes queue timestamp parsing for consumers that need display formatting.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}

// WindowLabel renders an item's recording window, e.g. "100.0s-160.0s (60.0s)".
// Items still recording show an open end.
func WindowLabel(item QueueItem) string {
	if item.T1 == nil {
		return fmt.Sprintf("%.1fs-…", item.T0)
	}
	return fmt.Sprintf("%.1fs-%.1fs (%.1fs)", item.T0, *item.T1, *item.T1-item.T0)
}

// TriggerLabel renders the trigger and its source, with confidence when known.
func TriggerLabel(item QueueItem) string {
	label := item.Trigger
	if item.TriggerSource != "" && item.TriggerSource != "manual" {
		label += ": " + item.TriggerSource
	}
	if item.TriggerConfidence != nil {
		label += fmt.Sprintf(" (%.0f%%)", *item.TriggerConfidence*100)
	}
	return label
}
