// Package testutil provides deterministic test doubles for the tracking core.
package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a settable, advanceable wall clock for tests.
//
// Unlike track.SystemClock, DeterministicClock pins Now() to a known instant
// so detection and resolution timestamps compare exactly in assertions.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock pinned to the given instant.
func NewDeterministicClock(start time.Time) *DeterministicClock {
	return &DeterministicClock{now: start.UTC()}
}

// Now returns the pinned instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to a specific instant.
func (c *DeterministicClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
