package track

import (
	"strings"
	"testing"
)

func TestValidateTenant(t *testing.T) {
	tests := []struct {
		name    string
		tenant  string
		wantErr bool
	}{
		{"simple", "acme", false},
		{"with digits", "plant42", false},
		{"with dash and underscore", "acme-north_2", false},
		{"empty", "", true},
		{"uppercase", "Acme", true},
		{"space", "acme corp", true},
		{"slash", "acme/other", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenant(tt.tenant)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateTenant(%q) = nil, want error", tt.tenant)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateTenant(%q) = %v, want nil", tt.tenant, err)
			}
			if tt.wantErr && !IsTenantIsolation(err) {
				t.Errorf("ValidateTenant(%q) error code should be TENANT_ISOLATION, got %v", tt.tenant, err)
			}
		})
	}
}

func TestValidateEntityType(t *testing.T) {
	for et := range ValidEntityTypes {
		if err := ValidateEntityType(et); err != nil {
			t.Errorf("ValidateEntityType(%q) = %v", et, err)
		}
	}

	err := ValidateEntityType("machine")
	if err == nil {
		t.Fatal("ValidateEntityType(machine) = nil, want error")
	}
	if !hasCode(err, ErrCodeInvalidEntityType) {
		t.Errorf("error code = %v, want INVALID_ENTITY_TYPE", err)
	}
}

func TestValidateKind(t *testing.T) {
	for k := range ValidExpectationKinds {
		if err := ValidateKind(k); err != nil {
			t.Errorf("ValidateKind(%q) = %v", k, err)
		}
	}

	err := ValidateKind("punctuality")
	if err == nil {
		t.Fatal("ValidateKind(punctuality) = nil, want error")
	}
	if !hasCode(err, ErrCodeInvalidKind) {
		t.Errorf("error code = %v, want INVALID_KIND", err)
	}
}

func TestValidateSource(t *testing.T) {
	for s := range ValidSources {
		if err := ValidateSource(s); err != nil {
			t.Errorf("ValidateSource(%q) = %v", s, err)
		}
	}

	if err := ValidateSource("crystal_ball"); err == nil {
		t.Error("ValidateSource(crystal_ball) = nil, want error")
	}
}
