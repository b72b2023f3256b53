package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/events"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/store"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// DefaultTolerance is the reference tolerance for completion-time deviation.
// A completion more than this much past the expected instant is late.
const DefaultTolerance = time.Minute

// DefaultTerminalStatuses maps each entity type to the statuses it does not
// normally leave once reached.
func DefaultTerminalStatuses() map[track.EntityType]map[string]bool {
	return map[track.EntityType]map[string]bool{
		track.EntityJob:       {"completed": true},
		track.EntityOperation: {"completed": true},
		track.EntityPart:      {"completed": true},
		track.EntityShipment:  {"delivered": true},
	}
}

// Detector observes terminal-state transitions and raises exceptions when
// the outcome violated the active expectation.
//
// Detection fires exactly once per non-terminal-to-terminal edge. The edge
// is decided against the store's recorded last status inside the same
// transaction that writes the exception, so duplicate event delivery and
// terminal-to-terminal noise are no-ops. A reopen followed by a re-complete
// is a new edge and may raise a second exception against the then-active
// expectation; that duplicate is preserved deliberately.
type Detector struct {
	store     *store.Store
	clock     track.Clock
	ids       track.IDGenerator
	logger    *slog.Logger
	tolerance time.Duration
	terminal  map[track.EntityType]map[string]bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithTolerance overrides the completion-time tolerance.
func WithTolerance(d time.Duration) Option {
	return func(det *Detector) { det.tolerance = d }
}

// WithTerminalStatuses overrides the terminal-status table.
func WithTerminalStatuses(m map[track.EntityType]map[string]bool) Option {
	return func(det *Detector) { det.terminal = m }
}

// WithClock replaces the system clock, typically in tests.
func WithClock(c track.Clock) Option {
	return func(det *Detector) { det.clock = c }
}

// WithIDGenerator replaces the UUIDv7 generator, typically in tests.
func WithIDGenerator(g track.IDGenerator) Option {
	return func(det *Detector) { det.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(det *Detector) { det.logger = l }
}

// New creates a Detector over the given store.
func New(s *store.Store, opts ...Option) *Detector {
	d := &Detector{
		store:     s,
		clock:     track.SystemClock{},
		ids:       track.UUIDv7Generator{},
		logger:    slog.Default(),
		tolerance: DefaultTolerance,
		terminal:  DefaultTerminalStatuses(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleStatusChange implements events.Handler, letting the detector
// subscribe directly to the status-change bus.
func (d *Detector) HandleStatusChange(ctx context.Context, ev events.StatusChange) error {
	_, err := d.Observe(ctx, ev)
	return err
}

// Observe processes one status change and returns the exception it raised,
// if any. The status observation and the exception share one transaction:
// both commit or neither does.
func (d *Detector) Observe(ctx context.Context, ev events.StatusChange) (*track.Exception, error) {
	if err := track.ValidateTenant(ev.Tenant); err != nil {
		return nil, err
	}
	if err := track.ValidateEntityType(ev.EntityType); err != nil {
		return nil, err
	}

	newTerminal := d.isTerminal(ev.EntityType, ev.NewStatus)

	tx, err := d.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("observe status change: %w", err)
	}
	defer tx.Rollback()

	prev, prevTerminal, err := tx.RecordStatus(ctx, ev.Tenant, ev.EntityType, ev.EntityID, ev.NewStatus, newTerminal, ev.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("observe status change: %w", err)
	}

	exc, err := d.detect(ctx, tx, ev, prev, prevTerminal, newTerminal)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("observe status change: commit: %w", err)
	}

	if exc != nil {
		d.logger.Info("exception detected",
			"tenant", exc.Tenant,
			"exception_id", exc.ID,
			"expectation_id", exc.ExpectationID,
			"kind", exc.Kind,
			"deviation_minutes", exc.DeviationAmount,
		)
	}

	return exc, nil
}

// detect applies the classification rules within the caller's transaction.
func (d *Detector) detect(ctx context.Context, tx *store.Tx, ev events.StatusChange, prev string, prevTerminal, newTerminal bool) (*track.Exception, error) {
	if !newTerminal {
		return nil, nil
	}

	// Edge check against the recorded last status. When the entity was
	// never observed before, fall back to the event's own old status.
	if prevTerminal {
		d.logger.Debug("duplicate terminal delivery ignored",
			"tenant", ev.Tenant, "entity", ev.EntityID, "status", ev.NewStatus)
		return nil, nil
	}
	if prev == "" && d.isTerminal(ev.EntityType, ev.OldStatus) {
		return nil, nil
	}

	active, err := tx.ActiveExpectation(ctx, ev.Tenant, ev.EntityType, ev.EntityID, track.KindCompletionTime)
	if err != nil {
		return nil, fmt.Errorf("load active expectation: %w", err)
	}
	if active == nil || active.ExpectedAt == nil {
		// No standing belief, no possible violation.
		return nil, nil
	}

	deviation := ev.OccurredAt.Sub(*active.ExpectedAt)
	if deviation <= d.tolerance {
		// On time or early. Early completions are deliberately not
		// classified from this path.
		return nil, nil
	}

	occurred := ev.OccurredAt
	exc := track.Exception{
		ID:              d.ids.Generate(),
		Tenant:          ev.Tenant,
		ExpectationID:   active.ID,
		Kind:            track.ExceptionLate,
		Status:          track.StatusOpen,
		ActualValue:     track.Payload{"completed_at": occurred.UTC().Format(time.RFC3339Nano)},
		OccurredAt:      &occurred,
		DeviationAmount: deviation.Minutes(),
		DeviationUnit:   track.UnitMinutes,
		DetectedAt:      d.clock.Now(),
		Metadata:        track.Payload{"entity_label": d.label(ev)},
	}
	if ev.TransitionRef != "" {
		ref := ev.TransitionRef
		exc.TransitionRef = &ref
	}

	if _, err := tx.InsertException(ctx, exc); err != nil {
		return nil, fmt.Errorf("insert exception: %w", err)
	}

	return &exc, nil
}

func (d *Detector) isTerminal(et track.EntityType, status string) bool {
	return d.terminal[et][status]
}

func (d *Detector) label(ev events.StatusChange) string {
	if ev.Label != "" {
		return ev.Label
	}
	return fmt.Sprintf("%s %s", ev.EntityType, ev.EntityID)
}
