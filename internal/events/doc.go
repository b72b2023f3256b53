// Package events carries entity status changes from the owning mutation
// path to the exception detector.
//
// The reference system hid this dependency behind a storage trigger; here it
// is an explicit, synchronous observer. Publish runs every subscriber in the
// caller's goroutine and returns the first error, so detection shares the
// publisher's unit of work: the status change and any exception it raises
// either both take effect or neither does.
package events
