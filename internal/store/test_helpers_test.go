package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// testEpoch is the reference instant test clocks start from.
var testEpoch = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

// createTestStore creates a SQLite store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestExpectation records a completion_time expectation for the key.
func createTestExpectation(t *testing.T, s *Store, tenant, entityID string, due time.Time) track.Expectation {
	t.Helper()
	exp, err := s.CreateExpectation(context.Background(), CreateExpectationParams{
		Tenant:        tenant,
		EntityType:    track.EntityOperation,
		EntityID:      entityID,
		Kind:          track.KindCompletionTime,
		Belief:        "Operation done by due",
		ExpectedValue: track.Payload{"due": due.Format(time.RFC3339)},
		ExpectedAt:    &due,
		Source:        track.SourceManual,
		CreatedBy:     "tester",
	})
	if err != nil {
		t.Fatalf("CreateExpectation failed: %v", err)
	}
	return exp
}

// createTestException inserts an open late exception against an expectation.
func createTestException(t *testing.T, s *Store, id string, exp track.Expectation, detectedAt time.Time) track.Exception {
	t.Helper()
	occurred := detectedAt
	exc := track.Exception{
		ID:              id,
		Tenant:          exp.Tenant,
		ExpectationID:   exp.ID,
		Kind:            track.ExceptionLate,
		Status:          track.StatusOpen,
		ActualValue:     track.Payload{"completed_at": occurred.Format(time.RFC3339)},
		OccurredAt:      &occurred,
		DeviationAmount: 30,
		DeviationUnit:   track.UnitMinutes,
		DetectedAt:      detectedAt,
	}
	inserted, err := s.InsertException(context.Background(), exc)
	if err != nil {
		t.Fatalf("InsertException failed: %v", err)
	}
	if !inserted {
		t.Fatal("InsertException reported inserted=false for a new row")
	}
	return exc
}
