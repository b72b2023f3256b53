package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/store"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// Workflow applies lifecycle transitions to exceptions.
//
// Each transition is a guarded single-row UPDATE with the allowed source
// states in the WHERE clause; the store reports whether the claim landed.
// Losing the claim means the exception moved concurrently, and the caller
// gets the same typed error as if it had read the newer state first.
type Workflow struct {
	store  *store.Store
	clock  track.Clock
	logger *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock replaces the system clock, typically in tests.
func WithClock(c track.Clock) Option {
	return func(w *Workflow) { w.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// New creates a Workflow over the given store.
func New(s *store.Store, opts ...Option) *Workflow {
	w := &Workflow{
		store:  s,
		clock:  track.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Acknowledge moves an open exception to acknowledged, stamping when and by
// whom. Allowed only from open.
func (w *Workflow) Acknowledge(ctx context.Context, tenant, exceptionID, actor string) (track.Exception, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Exception{}, err
	}

	ok, err := w.store.MarkAcknowledged(ctx, tenant, exceptionID, actor, w.clock.Now())
	if err != nil {
		return track.Exception{}, fmt.Errorf("acknowledge: %w", err)
	}
	if !ok {
		return track.Exception{}, w.transitionError(ctx, tenant, exceptionID, "acknowledge")
	}

	w.logger.Info("exception acknowledged", "tenant", tenant, "exception_id", exceptionID, "actor", actor)
	return w.store.GetException(ctx, tenant, exceptionID)
}

// ResolveOptions carries the optional narrative recorded at resolution.
// Unset fields leave the stored values unchanged.
type ResolveOptions struct {
	RootCause        string
	CorrectiveAction string
	PreventiveAction string
	Resolution       track.Payload
}

// Resolve closes an exception as resolved. Allowed from open or
// acknowledged; resolved is terminal.
func (w *Workflow) Resolve(ctx context.Context, tenant, exceptionID, actor string, opts ResolveOptions) (track.Exception, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Exception{}, err
	}

	ok, err := w.store.MarkResolved(ctx, tenant, exceptionID, actor, w.clock.Now(), store.ResolutionFields{
		RootCause:        opts.RootCause,
		CorrectiveAction: opts.CorrectiveAction,
		PreventiveAction: opts.PreventiveAction,
		Resolution:       opts.Resolution,
	})
	if err != nil {
		return track.Exception{}, fmt.Errorf("resolve: %w", err)
	}
	if !ok {
		return track.Exception{}, w.transitionError(ctx, tenant, exceptionID, "resolve")
	}

	w.logger.Info("exception resolved", "tenant", tenant, "exception_id", exceptionID, "actor", actor)
	return w.store.GetException(ctx, tenant, exceptionID)
}

// Dismiss closes an exception as dismissed, recording the reason. Allowed
// from open or acknowledged; dismissed is terminal.
func (w *Workflow) Dismiss(ctx context.Context, tenant, exceptionID, actor, reason string) (track.Exception, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Exception{}, err
	}

	ok, err := w.store.MarkDismissed(ctx, tenant, exceptionID, actor, w.clock.Now(), reason)
	if err != nil {
		return track.Exception{}, fmt.Errorf("dismiss: %w", err)
	}
	if !ok {
		return track.Exception{}, w.transitionError(ctx, tenant, exceptionID, "dismiss")
	}

	w.logger.Info("exception dismissed", "tenant", tenant, "exception_id", exceptionID, "actor", actor, "reason", reason)
	return w.store.GetException(ctx, tenant, exceptionID)
}

// transitionError distinguishes why a guarded update claimed zero rows:
// missing record, cross-tenant access, or an ineligible current state.
func (w *Workflow) transitionError(ctx context.Context, tenant, exceptionID, attempted string) error {
	exc, err := w.store.GetException(ctx, tenant, exceptionID)
	if err != nil {
		// NOT_FOUND and TENANT_ISOLATION pass through typed.
		return err
	}
	return track.NewInvalidStateError(tenant, exceptionID, exc.Status, attempted)
}
