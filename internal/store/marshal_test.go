package store

import (
	"testing"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

func TestMarshalPayload_NilStoresEmptyObject(t *testing.T) {
	got, err := marshalPayload(nil)
	if err != nil {
		t.Fatalf("marshalPayload(nil) failed: %v", err)
	}
	if got != "{}" {
		t.Errorf("marshalPayload(nil) = %q, want {}", got)
	}
}

func TestUnmarshalPayload_EmptyObjectIsNil(t *testing.T) {
	got, err := unmarshalPayload("{}")
	if err != nil {
		t.Fatalf("unmarshalPayload failed: %v", err)
	}
	if got != nil {
		t.Errorf("unmarshalPayload({}) = %v, want nil", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := track.Payload{"due": "2026-09-04T12:00:00Z", "qty": float64(12)}

	text, err := marshalPayload(p)
	if err != nil {
		t.Fatalf("marshalPayload failed: %v", err)
	}
	got, err := unmarshalPayload(text)
	if err != nil {
		t.Fatalf("unmarshalPayload failed: %v", err)
	}
	if got["due"] != p["due"] || got["qty"] != p["qty"] {
		t.Errorf("round trip = %v, want %v", got, p)
	}
}

func TestFormatTime_FixedWidth(t *testing.T) {
	// Instants with and without sub-second parts must format to the same
	// width, or lexicographic comparison in SQL breaks.
	whole := time.Date(2026, 9, 4, 12, 0, 0, 0, time.UTC)
	frac := time.Date(2026, 9, 4, 12, 0, 0, 123456789, time.UTC)

	fw, ff := formatTime(whole), formatTime(frac)
	if len(fw) != len(ff) {
		t.Errorf("widths differ: %q vs %q", fw, ff)
	}

	// Lexicographic order must match chronological order.
	earlier := formatTime(whole)
	later := formatTime(whole.Add(time.Nanosecond))
	if !(earlier < later) {
		t.Errorf("lexicographic order broken: %q vs %q", earlier, later)
	}
}

func TestFormatTime_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2026, 9, 4, 14, 0, 0, 0, loc)

	got, err := parseTime(formatTime(local))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !got.Equal(local) {
		t.Errorf("round trip changed the instant: %v vs %v", got, local)
	}
	if got.Location() != time.UTC {
		t.Errorf("stored instant should parse as UTC, got %v", got.Location())
	}
}

func TestTimeRoundTrip(t *testing.T) {
	instant := time.Date(2026, 9, 4, 12, 40, 3, 500000000, time.UTC)

	got, err := parseTime(formatTime(instant))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !got.Equal(instant) {
		t.Errorf("round trip = %v, want %v", got, instant)
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	if formatNullTime(nil).Valid {
		t.Error("nil instant should store as NULL")
	}

	got, err := parseNullTime(formatNullTime(nil))
	if err != nil {
		t.Fatalf("parseNullTime failed: %v", err)
	}
	if got != nil {
		t.Errorf("parseNullTime(NULL) = %v, want nil", got)
	}

	instant := time.Date(2026, 9, 4, 12, 0, 0, 0, time.UTC)
	got, err = parseNullTime(formatNullTime(&instant))
	if err != nil {
		t.Fatalf("parseNullTime failed: %v", err)
	}
	if got == nil || !got.Equal(instant) {
		t.Errorf("round trip = %v, want %v", got, instant)
	}
}
