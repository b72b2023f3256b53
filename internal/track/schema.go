package track

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaFiles maps each expectation kind to its embedded JSON schema.
var schemaFiles = map[ExpectationKind]string{
	KindCompletionTime: "schemas/completion_time.json",
	KindDuration:       "schemas/duration.json",
	KindQuantity:       "schemas/quantity.json",
	KindDelivery:       "schemas/delivery.json",
}

var (
	compileOnce sync.Once
	compiled    map[ExpectationKind]*jsonschema.Schema
	compileErr  error
)

// compileSchemas compiles the embedded expected-value schemas once.
// The schemas ship with the binary, so a compile failure is a build defect
// and is surfaced on first validation rather than at init.
func compileSchemas() (map[ExpectationKind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		out := make(map[ExpectationKind]*jsonschema.Schema, len(schemaFiles))
		for kind, path := range schemaFiles {
			raw, err := schemaFS.ReadFile(path)
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", path, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
			if err != nil {
				compileErr = fmt.Errorf("parse schema %s: %w", path, err)
				return
			}
			if err := c.AddResource(path, doc); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", path, err)
				return
			}
			sch, err := c.Compile(path)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", path, err)
				return
			}
			out[kind] = sch
		}
		compiled = out
	})
	return compiled, compileErr
}

// ValidateExpectedValue checks a kind-specific expected-value payload against
// the embedded JSON schema for that kind.
//
// Returns a TrackError with ErrCodeInvalidValue when the payload does not
// satisfy the schema, so callers can surface the exact violation.
func ValidateExpectedValue(kind ExpectationKind, value Payload) error {
	if err := ValidateKind(kind); err != nil {
		return err
	}
	schemas, err := compileSchemas()
	if err != nil {
		return fmt.Errorf("expected-value schemas: %w", err)
	}
	// Schema validation operates on plain decoded JSON values.
	v := map[string]any(value)
	if v == nil {
		v = map[string]any{}
	}
	if err := schemas[kind].Validate(normalizeJSON(v)); err != nil {
		return &TrackError{
			Code:    ErrCodeInvalidValue,
			Message: fmt.Sprintf("expected value for kind %q: %v", kind, err),
		}
	}
	return nil
}

// normalizeJSON converts Go-native numeric types to the float64 form the
// schema validator expects from decoded JSON.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeJSON(val)
		}
		return out
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
