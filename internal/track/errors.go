package track

import (
	"errors"
	"fmt"
)

// TrackError represents a failure detected by a core operation.
//
// Errors are synchronous and single-step: a failed mutation leaves state
// unchanged and the caller must re-query before retrying a transition.
//
// TrackError includes structured fields for diagnostics and recovery.
type TrackError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Tenant identifies the scope of the failed operation.
	Tenant string

	// RecordID identifies the affected expectation or exception, if any.
	RecordID string

	// Status carries the current workflow status for INVALID_STATE errors,
	// letting callers distinguish "already terminal" from misuse.
	Status ExceptionStatus
}

// ErrorCode categorizes core errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the referenced expectation or exception
	// does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidState indicates a workflow transition attempted on an
	// exception that is already terminal or otherwise ineligible.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeConstraintViolation indicates an attempt to create a second
	// simultaneously-active expectation for a key, or a lost supersession
	// race.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeTenantIsolation indicates a cross-tenant read or write attempt.
	// Rejected unconditionally.
	ErrCodeTenantIsolation ErrorCode = "TENANT_ISOLATION"

	// ErrCodeInvalidEntityType indicates an unrecognized entity type.
	ErrCodeInvalidEntityType ErrorCode = "INVALID_ENTITY_TYPE"

	// ErrCodeInvalidKind indicates an unrecognized expectation kind.
	ErrCodeInvalidKind ErrorCode = "INVALID_KIND"

	// ErrCodeInvalidValue indicates an expected-value payload that does not
	// satisfy the schema for its kind, or another malformed input.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"
)

// Error implements the error interface.
func (e *TrackError) Error() string {
	if e.Tenant != "" && e.RecordID != "" {
		return fmt.Sprintf("%s: %s (tenant=%s, id=%s)", e.Code, e.Message, e.Tenant, e.RecordID)
	}
	if e.Tenant != "" {
		return fmt.Sprintf("%s: %s (tenant=%s)", e.Code, e.Message, e.Tenant)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInvalidState returns true if the error is an invalid-state error.
func IsInvalidState(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// IsConstraintViolation returns true if the error is a constraint violation.
func IsConstraintViolation(err error) bool {
	return hasCode(err, ErrCodeConstraintViolation)
}

// IsTenantIsolation returns true if the error is a tenant isolation violation.
func IsTenantIsolation(err error) bool {
	return hasCode(err, ErrCodeTenantIsolation)
}

func hasCode(err error, code ErrorCode) bool {
	var te *TrackError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// NewNotFoundError creates a TrackError for a missing record.
func NewNotFoundError(tenant, recordID string) *TrackError {
	return &TrackError{
		Code:     ErrCodeNotFound,
		Message:  "record does not exist",
		Tenant:   tenant,
		RecordID: recordID,
	}
}

// NewInvalidStateError creates a TrackError for an ineligible workflow
// transition, carrying the exception's current status.
func NewInvalidStateError(tenant, recordID string, current ExceptionStatus, attempted string) *TrackError {
	return &TrackError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("cannot %s exception in status %q", attempted, current),
		Tenant:   tenant,
		RecordID: recordID,
		Status:   current,
	}
}

// NewConstraintError creates a TrackError for an active-uniqueness conflict.
func NewConstraintError(tenant, message string) *TrackError {
	return &TrackError{
		Code:    ErrCodeConstraintViolation,
		Message: message,
		Tenant:  tenant,
	}
}

// NewTenantIsolationError creates a TrackError for a cross-tenant access
// attempt.
func NewTenantIsolationError(tenant, recordID string) *TrackError {
	return &TrackError{
		Code:     ErrCodeTenantIsolation,
		Message:  "record belongs to a different tenant",
		Tenant:   tenant,
		RecordID: recordID,
	}
}
