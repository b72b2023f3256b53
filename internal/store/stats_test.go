package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

func TestExceptionStats_Empty(t *testing.T) {
	s := createTestStore(t)

	stats, err := s.ExceptionStats(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ExceptionStats failed: %v", err)
	}
	if stats.TotalCount != 0 || stats.AvgResolutionTimeHours != 0 {
		t.Errorf("empty tenant stats = %+v", stats)
	}
}

func TestExceptionStats_CountsAndLatency(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	due := testEpoch.Add(4 * time.Hour)

	exps := make([]track.Expectation, 4)
	for i, id := range []string{"op-a", "op-b", "op-c", "op-d"} {
		exps[i] = createTestExpectation(t, s, "acme", id, due)
	}

	createTestException(t, s, "exc-open", exps[0], testEpoch)
	createTestException(t, s, "exc-ack", exps[1], testEpoch)
	createTestException(t, s, "exc-resolved", exps[2], testEpoch)
	createTestException(t, s, "exc-dismissed", exps[3], testEpoch)

	if _, err := s.MarkAcknowledged(ctx, "acme", "exc-ack", "lead", testEpoch.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	// Resolved 3 hours after detection.
	if _, err := s.MarkResolved(ctx, "acme", "exc-resolved", "lead", testEpoch.Add(3*time.Hour), ResolutionFields{}); err != nil {
		t.Fatal(err)
	}
	// Dismissed 1 hour after detection; dismissal stamps resolved_at too.
	if _, err := s.MarkDismissed(ctx, "acme", "exc-dismissed", "lead", testEpoch.Add(time.Hour), "noise"); err != nil {
		t.Fatal(err)
	}

	stats, err := s.ExceptionStats(ctx, "acme")
	if err != nil {
		t.Fatalf("ExceptionStats failed: %v", err)
	}

	if stats.OpenCount != 1 || stats.AcknowledgedCount != 1 || stats.ResolvedCount != 1 || stats.DismissedCount != 1 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.TotalCount != 4 {
		t.Errorf("TotalCount = %d, want 4", stats.TotalCount)
	}
	// Average over the two closed rows: (3h + 1h) / 2 = 2h.
	if math.Abs(stats.AvgResolutionTimeHours-2.0) > 1e-9 {
		t.Errorf("AvgResolutionTimeHours = %v, want 2.0", stats.AvgResolutionTimeHours)
	}
}

func TestExceptionStats_TenantScoped(t *testing.T) {
	s := createTestStore(t)
	due := testEpoch.Add(4 * time.Hour)

	exp := createTestExpectation(t, s, "acme", "op-1", due)
	createTestException(t, s, "exc-1", exp, testEpoch)

	stats, err := s.ExceptionStats(context.Background(), "rival")
	if err != nil {
		t.Fatalf("ExceptionStats failed: %v", err)
	}
	if stats.TotalCount != 0 {
		t.Error("another tenant's exceptions must not count")
	}
}
