package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// timeLayout is the storage format for all instants: RFC 3339 with a
// fixed-width nanosecond fraction. The fixed width matters - instants are
// compared lexicographically in SQL (date-range filters, the overdue sweep),
// and trailing-zero trimming would break that ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// marshalPayload converts a Payload to JSON TEXT for storage.
// A nil payload stores as the empty object so columns stay NOT NULL.
func marshalPayload(p track.Payload) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses JSON TEXT to a Payload.
func unmarshalPayload(data string) (track.Payload, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var p track.Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// formatTime converts an instant to storage text, normalized to UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatNullTime converts an optional instant to a nullable storage value.
func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// parseTime parses storage text back to an instant.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// parseNullTime parses a nullable storage value back to an optional instant.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString converts an optional string to a nullable storage value.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a nullable storage value to an optional string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
