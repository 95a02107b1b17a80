package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayouts are the zone-less ISO-8601 forms the service sends when its
// database drops the offset. They are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an RFC 3339 date-time, or a zone-less one as UTC.
func ParseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

// Timestamp is a date-time as it appears on the wire.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts null, RFC 3339 and zone-less date-times.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

// Ptr returns the time, or nil for a missing timestamp.
func (ts *Timestamp) Ptr() *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

// UnmarshalJSON decodes a task, accepting zone-less timestamps.
func (t *Task) UnmarshalJSON(b []byte) error {
	type plain Task
	var w struct {
		plain
		DueDate   *Timestamp `json:"due_date"`
		CreatedAt Timestamp  `json:"created_at"`
		UpdatedAt *Timestamp `json:"updated_at"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Task(w.plain)
	t.DueDate = w.DueDate.Ptr()
	t.CreatedAt = w.CreatedAt.Time
	t.UpdatedAt = w.UpdatedAt.Ptr()
	return nil
}
