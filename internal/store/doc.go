// Package store provides durable storage for the expectation ledger and
// exception records.
//
// The ledger is append-only:
//   - Expectations: versioned belief records; never updated except to set the
//     supersession pointer and timestamp, each exactly once
//   - Exceptions: detected divergences; mutated only through guarded workflow
//     updates, never deleted
//   - Entity statuses: last observed status per watched entity, the
//     detector's edge and idempotency record
//
// # Invariants
//
// Active uniqueness: at most one expectation per
// (tenant, entity_type, entity_id, kind) has a NULL superseded_by, enforced
// by a partial unique index. A racing supersede loses the claim and surfaces
// ErrCodeConstraintViolation; the winner's new version and the retirement of
// the old one commit in a single transaction, so no reader ever observes
// zero or two active expectations for a key.
//
// Tenant isolation: every query filters by tenant_id. Lookups by opaque ID
// fetch the row first and reject cross-tenant access with a typed error.
//
// # Backends
//
// SQLite (default) with WAL mode, NORMAL synchronous, busy timeout, and
// foreign key enforcement; the connection pool is limited to a single
// writer. Postgres via lib/pq for deployments that already run one, selected
// by DSN, with '?' placeholders rebound to '$n'. Timestamps are stored as
// RFC 3339 text in both dialects so scan code stays uniform.
package store
