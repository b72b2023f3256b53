package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// StatusChange is the notification delivered by an entity's mutation path on
// every status change. The entity itself stays opaque to this core; only the
// (EntityType, EntityID) pair and the status strings cross the boundary.
type StatusChange struct {
	Tenant     string
	EntityType track.EntityType
	EntityID   string
	OldStatus  string
	NewStatus  string
	OccurredAt time.Time

	// Label is an optional human-readable entity name carried into
	// exception metadata (e.g. "Op 40 - Deburr, Job 2024-117").
	Label string

	// TransitionRef optionally identifies the mutation in the
	// collaborator's own audit log.
	TransitionRef string
}

// Handler processes a status change. A non-nil error aborts the publish and
// propagates to the mutation path that triggered it.
type Handler interface {
	HandleStatusChange(ctx context.Context, ev StatusChange) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev StatusChange) error

// HandleStatusChange implements Handler.
func (f HandlerFunc) HandleStatusChange(ctx context.Context, ev StatusChange) error {
	return f(ctx, ev)
}

// Bus dispatches status changes to subscribers synchronously, in
// subscription order.
//
// Thread-safety: Subscribe and Publish are safe for concurrent use. The
// subscriber list is append-only; handlers registered during a publish are
// not invoked for that publish.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Registration order is dispatch order.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the status change to every subscriber in order, stopping
// at the first error. Called synchronously by the owning entity's mutation
// path; a returned error means the mutation should not be considered
// committed.
func (b *Bus) Publish(ctx context.Context, ev StatusChange) error {
	if err := track.ValidateTenant(ev.Tenant); err != nil {
		return err
	}
	if err := track.ValidateEntityType(ev.EntityType); err != nil {
		return err
	}

	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.HandleStatusChange(ctx, ev); err != nil {
			return fmt.Errorf("publish status change: %w", err)
		}
	}
	return nil
}
