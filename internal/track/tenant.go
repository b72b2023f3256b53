package track

import "fmt"

// maxTenantLength bounds tenant identifiers; matches the column width.
const maxTenantLength = 64

// ValidateTenant is the single gateway for tenant-scope validation.
//
// Every core operation calls this before touching the store. Cross-tenant
// visibility is a hard isolation invariant: an empty or malformed tenant is
// rejected here, and a mismatched tenant on a concrete record is rejected by
// the store with ErrCodeTenantIsolation.
func ValidateTenant(tenant string) error {
	if tenant == "" {
		return &TrackError{
			Code:    ErrCodeTenantIsolation,
			Message: "tenant is required",
		}
	}
	if len(tenant) > maxTenantLength {
		return &TrackError{
			Code:    ErrCodeTenantIsolation,
			Message: fmt.Sprintf("tenant exceeds %d characters", maxTenantLength),
			Tenant:  tenant[:maxTenantLength],
		}
	}
	for _, r := range tenant {
		if !isTenantRune(r) {
			return &TrackError{
				Code:    ErrCodeTenantIsolation,
				Message: fmt.Sprintf("tenant contains invalid character %q", r),
				Tenant:  tenant,
			}
		}
	}
	return nil
}

// isTenantRune allows lowercase alphanumerics, dash, and underscore.
func isTenantRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// ValidateEntityType rejects unrecognized entity types with a typed error.
func ValidateEntityType(et EntityType) error {
	if !ValidEntityTypes[et] {
		return &TrackError{
			Code:    ErrCodeInvalidEntityType,
			Message: fmt.Sprintf("unrecognized entity type %q", et),
		}
	}
	return nil
}

// ValidateKind rejects unrecognized expectation kinds with a typed error.
func ValidateKind(k ExpectationKind) error {
	if !ValidExpectationKinds[k] {
		return &TrackError{
			Code:    ErrCodeInvalidKind,
			Message: fmt.Sprintf("unrecognized expectation kind %q", k),
		}
	}
	return nil
}

// ValidateSource rejects unrecognized provenance sources with a typed error.
func ValidateSource(s Source) error {
	if !ValidSources[s] {
		return &TrackError{
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("unrecognized source %q", s),
		}
	}
	return nil
}
