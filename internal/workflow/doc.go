// Package workflow governs an exception's lifecycle from detection to
// closure.
//
// States: open -> acknowledged -> resolved, with dismissed reachable
// directly from open or acknowledged. Resolved and dismissed are terminal
// and immutable. Resolution is a human-driven transition; nothing in the
// core resolves exceptions on its own.
//
// The reference system answered ineligible transitions with a silent no-op.
// Here they fail with a typed INVALID_STATE error carrying the current
// status, so callers can tell "already terminal" apart from misuse. A failed
// transition leaves the row untouched.
package workflow
