package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// layouts accepted on decode. The backend serializes LocalDateTime without a zone;
// those values are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Time is a timestamp that tolerates the zone-less formats the remote API emits.
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time { return Time{Time: t.UTC()} }

// ParseTime parses s with the first matching layout.
func ParseTime(s string) (Time, error) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return NewTime(t), nil
		}
	}
	return Time{}, fmt.Errorf("model: unrecognized time %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("model: time must be a string: %w", err)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
