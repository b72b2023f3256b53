package track

import "time"

// Clock supplies the current instant to anything that stamps records.
//
// Deviations are wall-time quantities, so the core depends on a clock
// abstraction rather than calling time.Now directly. Production code uses
// SystemClock; tests use testutil.DeterministicClock to pin detection and
// resolution instants.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real wall-clock time in UTC.
//
// All persisted instants are UTC; conversion for display is a consumer
// concern.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
