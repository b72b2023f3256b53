package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/store"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// Sweeper raises non_occurrence exceptions for active expectations whose
// deadline passed while the entity never reached a terminal status.
//
// The reactive detector cannot see "nothing happened", so this runs as a
// separate collaborator the operator schedules - a cron-driven CLI run or a
// caller-owned ticker. RunOnce is idempotent: the store keeps at most one
// non_occurrence exception per expectation, so overlapping or repeated
// sweeps do not duplicate.
type Sweeper struct {
	store  *store.Store
	clock  track.Clock
	ids    track.IDGenerator
	logger *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperClock replaces the system clock, typically in tests.
func WithSweeperClock(c track.Clock) SweeperOption {
	return func(w *Sweeper) { w.clock = c }
}

// WithSweeperIDGenerator replaces the UUIDv7 generator, typically in tests.
func WithSweeperIDGenerator(g track.IDGenerator) SweeperOption {
	return func(w *Sweeper) { w.ids = g }
}

// WithSweeperLogger sets the logger.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(w *Sweeper) { w.logger = l }
}

// NewSweeper creates a Sweeper over the given store.
func NewSweeper(s *store.Store, opts ...SweeperOption) *Sweeper {
	w := &Sweeper{
		store:  s,
		clock:  track.SystemClock{},
		ids:    track.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunOnce scans one tenant's overdue active expectations and raises a
// non_occurrence exception for each. Returns the number of exceptions newly
// raised (already-flagged expectations are skipped).
func (w *Sweeper) RunOnce(ctx context.Context, tenant string) (int, error) {
	now := w.clock.Now()

	overdue, err := w.store.OverdueActiveExpectations(ctx, tenant, now)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	raised := 0
	for _, exp := range overdue {
		exc := track.Exception{
			ID:              w.ids.Generate(),
			Tenant:          exp.Tenant,
			ExpectationID:   exp.ID,
			Kind:            track.ExceptionNonOccurrence,
			Status:          track.StatusOpen,
			OccurredAt:      nil, // nothing occurred - that is the violation
			DeviationAmount: now.Sub(*exp.ExpectedAt).Minutes(),
			DeviationUnit:   track.UnitMinutes,
			DetectedAt:      now,
			Metadata: track.Payload{
				"entity_label": fmt.Sprintf("%s %s", exp.EntityType, exp.EntityID),
			},
		}

		inserted, err := w.store.InsertException(ctx, exc)
		if err != nil {
			return raised, fmt.Errorf("sweep: raise non_occurrence for %s: %w", exp.ID, err)
		}
		if inserted {
			raised++
			w.logger.Info("non_occurrence exception raised",
				"tenant", exp.Tenant,
				"expectation_id", exp.ID,
				"entity", exp.EntityID,
				"overdue_minutes", exc.DeviationAmount,
			)
		}
	}

	return raised, nil
}
