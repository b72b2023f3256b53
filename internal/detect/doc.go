// Package detect decides whether an observed outcome violated the active
// expectation for an entity.
//
// Detector reacts to status-change events: on the edge where an entity moves
// from a non-terminal status into a terminal one, it compares the completion
// instant against the active completion_time expectation and raises a late
// exception when the deviation exceeds tolerance. Everything runs in one
// store transaction, so the recorded status observation and the exception
// commit together.
//
// Sweeper covers the case detection can never see: a deadline passing while
// the entity stays non-terminal. It is a separate collaborator that the
// caller schedules; nothing in this package starts background work on its
// own.
package detect
