package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, session_id, clip_id, status, trigger_type, trigger_source, trigger_confidence, t0, t1, thumbnail_path, title, error_message, attempts, last_heartbeat, created_at, updated_at"

// timestampLayout is fixed-width so lexical ORDER BY on created_at matches
// chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item          Item
		clipID        sql.NullString
		statusStr     string
		triggerType   string
		confidence    sql.NullFloat64
		t1            sql.NullFloat64
		thumbnailPath sql.NullString
		title         sql.NullString
		errorMessage  sql.NullString
		heartbeatRaw  sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.SessionID,
		&clipID,
		&statusStr,
		&triggerType,
		&item.TriggerSource,
		&confidence,
		&item.T0,
		&t1,
		&thumbnailPath,
		&title,
		&errorMessage,
		&item.Attempts,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item.ClipID = clipID.String
	item.Status = Status(statusStr)
	item.TriggerType = TriggerType(triggerType)
	item.TriggerConfidence = floatPtr(confidence)
	item.T1 = floatPtr(t1)
	item.ThumbnailPath = thumbnailPath.String
	item.Title = title.String
	item.ErrorMessage = errorMessage.String
	item.LastHeartbeat = timePtr(heartbeatRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func floatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

func timePtr(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func now() string {
	return formatTime(time.Now())
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
