package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"clipforge/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects log records. Zero-valued fields match everything.
type Filter struct {
	// MinLevel drops records below this level (debug, info, warn, error).
	MinLevel  string
	EventType string
	SessionID string
	ItemID    string
	Component string
	Search    string
}

// Empty reports whether the filter accepts every line.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.MinLevel) == "" &&
		strings.TrimSpace(f.EventType) == "" &&
		strings.TrimSpace(f.SessionID) == "" &&
		strings.TrimSpace(f.ItemID) == "" &&
		strings.TrimSpace(f.Component) == "" &&
		strings.TrimSpace(f.Search) == ""
}

// Record is one decoded JSON log line.
type Record map[string]any

// Parse decodes a JSON log line. Non-JSON lines return ok=false.
func Parse(line string) (Record, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, false
	}
	return rec, true
}

// Field returns a record value rendered as a string.
func (r Record) Field(key string) string {
	value, ok := r[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Match reports whether line passes the filter. Lines that are not JSON only
// honour Search.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	if search := strings.TrimSpace(f.Search); search != "" &&
		!strings.Contains(strings.ToLower(line), strings.ToLower(search)) {
		return false
	}
	rec, ok := Parse(line)
	if !ok {
		return strings.TrimSpace(f.MinLevel) == "" &&
			strings.TrimSpace(f.EventType) == "" &&
			strings.TrimSpace(f.SessionID) == "" &&
			strings.TrimSpace(f.ItemID) == "" &&
			strings.TrimSpace(f.Component) == ""
	}
	if floor := strings.ToLower(strings.TrimSpace(f.MinLevel)); floor != "" {
		want, known := levelRank[floor]
		got, ok := levelRank[strings.ToLower(rec.Field("level"))]
		if known && ok && got < want {
			return false
		}
	}
	for key, want := range map[string]string{
		logging.FieldEventType: f.EventType,
		logging.FieldSessionID: f.SessionID,
		logging.FieldItemID:    f.ItemID,
		logging.FieldComponent: f.Component,
	} {
		if want = strings.TrimSpace(want); want != "" && rec.Field(key) != want {
			return false
		}
	}
	return true
}

// Format renders a JSON record as "ts LEVEL msg key=value ...". Other lines
// are returned unchanged.
func Format(line string) string {
	rec, ok := Parse(line)
	if !ok {
		return line
	}
	var b strings.Builder
	if ts := rec.Field("ts"); ts != "" {
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(rec.Field("level")), rec.Field("msg"))

	keys := make([]string, 0, len(rec))
	for key := range rec {
		switch key {
		case "ts", "level", "msg":
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, rec.Field(key))
	}
	return b.String()
}
