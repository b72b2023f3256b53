// Package track defines the domain model for expectation and exception
// tracking: versioned beliefs about what should happen to a manufacturing
// entity, and recorded divergences when observed reality disagrees.
//
// An Expectation is immutable once written. The only fields that ever change
// are the supersession pointer and timestamp, each set exactly once when a
// newer version replaces it. Exceptions are created by the detector and
// mutated only through the workflow state machine.
//
// All records are scoped to a tenant. Tenant identity is a mandatory
// parameter on every operation and is validated centrally by ValidateTenant
// before any read or write.
package track
