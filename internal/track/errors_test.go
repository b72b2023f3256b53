package track

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTrackError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *TrackError
		want string
	}{
		{
			name: "code and message only",
			err:  &TrackError{Code: ErrCodeTenantIsolation, Message: "tenant is required"},
			want: "TENANT_ISOLATION: tenant is required",
		},
		{
			name: "with tenant",
			err:  &TrackError{Code: ErrCodeConstraintViolation, Message: "conflict", Tenant: "acme"},
			want: "CONSTRAINT_VIOLATION: conflict (tenant=acme)",
		},
		{
			name: "with tenant and record",
			err:  NewNotFoundError("acme", "exp-1"),
			want: "NOT_FOUND: record does not exist (tenant=acme, id=exp-1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	notFound := NewNotFoundError("acme", "exc-1")
	invalidState := NewInvalidStateError("acme", "exc-1", StatusDismissed, "resolve")
	constraint := NewConstraintError("acme", "active expectation already exists")
	isolation := NewTenantIsolationError("acme", "exp-1")

	if !IsNotFound(notFound) {
		t.Error("IsNotFound(notFound) = false")
	}
	if !IsInvalidState(invalidState) {
		t.Error("IsInvalidState(invalidState) = false")
	}
	if !IsConstraintViolation(constraint) {
		t.Error("IsConstraintViolation(constraint) = false")
	}
	if !IsTenantIsolation(isolation) {
		t.Error("IsTenantIsolation(isolation) = false")
	}

	// Predicates must not cross-match
	if IsNotFound(invalidState) || IsInvalidState(notFound) {
		t.Error("predicates matched the wrong code")
	}
	if IsConstraintViolation(isolation) || IsTenantIsolation(constraint) {
		t.Error("predicates matched the wrong code")
	}
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("supersede: %w", NewConstraintError("acme", "lost race"))
	if !IsConstraintViolation(wrapped) {
		t.Error("IsConstraintViolation should see through wrapping")
	}

	if IsNotFound(errors.New("plain error")) {
		t.Error("IsNotFound(plain error) = true")
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) = true")
	}
}

func TestNewInvalidStateError_CarriesStatus(t *testing.T) {
	err := NewInvalidStateError("acme", "exc-1", StatusDismissed, "resolve")

	var te *TrackError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TrackError, got %T", err)
	}
	if te.Status != StatusDismissed {
		t.Errorf("Status = %q, want %q", te.Status, StatusDismissed)
	}
	if !strings.Contains(te.Message, "resolve") {
		t.Errorf("Message %q should name the attempted transition", te.Message)
	}
	if !strings.Contains(te.Message, string(StatusDismissed)) {
		t.Errorf("Message %q should name the current status", te.Message)
	}
}

func TestExceptionStatus_Terminal(t *testing.T) {
	if StatusOpen.Terminal() || StatusAcknowledged.Terminal() {
		t.Error("open and acknowledged must not be terminal")
	}
	if !StatusResolved.Terminal() || !StatusDismissed.Terminal() {
		t.Error("resolved and dismissed must be terminal")
	}
}
