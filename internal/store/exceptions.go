package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// exceptionColumns is the canonical column list for exception scans.
const exceptionColumns = `id, tenant_id, expectation_id, kind, status,
	actual_value, occurred_at, deviation_amount, deviation_unit, detected_at,
	transition_ref, acknowledged_at, acknowledged_by, resolved_at, resolved_by,
	resolution, root_cause, corrective_action, preventive_action, metadata`

// InsertException writes a newly detected exception inside the detector's
// transaction, so the exception and the status observation that triggered it
// commit together.
//
// Uses ON CONFLICT DO NOTHING so the sweep's non_occurrence insert is
// idempotent under the partial unique index; returns inserted=false when the
// row already existed.
func (t *Tx) InsertException(ctx context.Context, exc track.Exception) (inserted bool, err error) {
	return insertException(ctx, t.tx, t.s, exc)
}

// InsertException is the non-transactional variant used by the sweeper,
// whose per-expectation inserts are individually idempotent.
func (s *Store) InsertException(ctx context.Context, exc track.Exception) (inserted bool, err error) {
	return insertException(ctx, s.db, s, exc)
}

func insertException(ctx context.Context, q querier, s *Store, exc track.Exception) (bool, error) {
	actualJSON, err := marshalPayload(exc.ActualValue)
	if err != nil {
		return false, fmt.Errorf("insert exception: %w", err)
	}
	resolutionJSON, err := marshalPayload(exc.Resolution)
	if err != nil {
		return false, fmt.Errorf("insert exception: %w", err)
	}
	metadataJSON, err := marshalPayload(exc.Metadata)
	if err != nil {
		return false, fmt.Errorf("insert exception: %w", err)
	}

	res, err := q.ExecContext(ctx, s.rebind(`
		INSERT INTO exceptions
		(id, tenant_id, expectation_id, kind, status, actual_value, occurred_at,
		 deviation_amount, deviation_unit, detected_at, transition_ref,
		 acknowledged_at, acknowledged_by, resolved_at, resolved_by,
		 resolution, root_cause, corrective_action, preventive_action, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, '', NULL, '', ?, '', '', '', ?)
		ON CONFLICT DO NOTHING
	`),
		exc.ID,
		exc.Tenant,
		exc.ExpectationID,
		string(exc.Kind),
		string(exc.Status),
		actualJSON,
		formatNullTime(exc.OccurredAt),
		exc.DeviationAmount,
		string(exc.DeviationUnit),
		formatTime(exc.DetectedAt),
		nullString(exc.TransitionRef),
		resolutionJSON,
		metadataJSON,
	)
	if err != nil {
		return false, fmt.Errorf("insert exception: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert exception: rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetException retrieves a single exception by ID.
//
// Fails with ErrCodeNotFound if absent and ErrCodeTenantIsolation if the row
// belongs to another tenant.
func (s *Store) GetException(ctx context.Context, tenant, id string) (track.Exception, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Exception{}, err
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+exceptionColumns+`
		FROM exceptions
		WHERE id = ?
	`), id)

	exc, err := scanExceptionFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Exception{}, track.NewNotFoundError(tenant, id)
	}
	if err != nil {
		return track.Exception{}, fmt.Errorf("get exception: %w", err)
	}
	if exc.Tenant != tenant {
		return track.Exception{}, track.NewTenantIsolationError(tenant, id)
	}
	return exc, nil
}

// ExceptionFilter narrows ListExceptions. Zero values mean "no constraint".
type ExceptionFilter struct {
	Status       track.ExceptionStatus
	Kind         track.ExceptionKind
	EntityType   track.EntityType
	EntityID     string
	DetectedFrom *time.Time
	DetectedTo   *time.Time
}

// ListExceptions returns a tenant's exceptions matching the filter, ordered
// by detection time then ID for deterministic results. Entity filters join
// through the violated expectation, since exceptions reference entities only
// via their expectation.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListExceptions(ctx context.Context, tenant string, f ExceptionFilter) ([]track.Exception, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`
		SELECT ` + prefixColumns("x", exceptionColumns) + `
		FROM exceptions x
		JOIN expectations e ON x.expectation_id = e.id
		WHERE x.tenant_id = ?`)
	args := []any{tenant}

	if f.Status != "" {
		b.WriteString(" AND x.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Kind != "" {
		b.WriteString(" AND x.kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.EntityType != "" {
		b.WriteString(" AND e.entity_type = ?")
		args = append(args, string(f.EntityType))
	}
	if f.EntityID != "" {
		b.WriteString(" AND e.entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.DetectedFrom != nil {
		b.WriteString(" AND x.detected_at >= ?")
		args = append(args, formatTime(*f.DetectedFrom))
	}
	if f.DetectedTo != nil {
		b.WriteString(" AND x.detected_at < ?")
		args = append(args, formatTime(*f.DetectedTo))
	}

	b.WriteString(" ORDER BY x.detected_at ASC, x.id ASC")

	rows, err := s.db.QueryContext(ctx, s.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer rows.Close()

	var out []track.Exception
	for rows.Next() {
		exc, err := scanExceptionFields(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		out = append(out, exc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exceptions: %w", err)
	}

	if out == nil {
		out = []track.Exception{}
	}

	return out, nil
}

// MarkAcknowledged transitions an open exception to acknowledged.
// The guarded WHERE is the claim: zero rows means the exception was not in
// the open state (or not visible to this tenant), and the caller decides
// which typed error applies.
func (s *Store) MarkAcknowledged(ctx context.Context, tenant, id, actor string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE exceptions
		SET status = ?, acknowledged_at = ?, acknowledged_by = ?
		WHERE id = ? AND tenant_id = ? AND status = ?
	`),
		string(track.StatusAcknowledged), formatTime(at), actor,
		id, tenant, string(track.StatusOpen),
	)
	if err != nil {
		return false, fmt.Errorf("mark acknowledged: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark acknowledged: rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResolutionFields carries the optional narrative set at resolution.
// Empty strings and a nil payload leave the stored fields unchanged.
type ResolutionFields struct {
	RootCause        string
	CorrectiveAction string
	PreventiveAction string
	Resolution       track.Payload
}

// MarkResolved transitions an open or acknowledged exception to resolved,
// merging only the provided narrative fields.
func (s *Store) MarkResolved(ctx context.Context, tenant, id, actor string, at time.Time, fields ResolutionFields) (bool, error) {
	resolutionJSON := ""
	if fields.Resolution != nil {
		var err error
		resolutionJSON, err = marshalPayload(fields.Resolution)
		if err != nil {
			return false, fmt.Errorf("mark resolved: %w", err)
		}
	}

	// CASE expressions merge: an empty input keeps the stored value.
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE exceptions
		SET status = ?,
		    resolved_at = ?,
		    resolved_by = ?,
		    root_cause = CASE WHEN ? = '' THEN root_cause ELSE ? END,
		    corrective_action = CASE WHEN ? = '' THEN corrective_action ELSE ? END,
		    preventive_action = CASE WHEN ? = '' THEN preventive_action ELSE ? END,
		    resolution = CASE WHEN ? = '' THEN resolution ELSE ? END
		WHERE id = ? AND tenant_id = ? AND status IN (?, ?)
	`),
		string(track.StatusResolved), formatTime(at), actor,
		fields.RootCause, fields.RootCause,
		fields.CorrectiveAction, fields.CorrectiveAction,
		fields.PreventiveAction, fields.PreventiveAction,
		resolutionJSON, resolutionJSON,
		id, tenant, string(track.StatusOpen), string(track.StatusAcknowledged),
	)
	if err != nil {
		return false, fmt.Errorf("mark resolved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark resolved: rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkDismissed transitions an open or acknowledged exception to dismissed,
// recording the dismissal reason in the resolution payload.
func (s *Store) MarkDismissed(ctx context.Context, tenant, id, actor string, at time.Time, reason string) (bool, error) {
	resolutionJSON, err := marshalPayload(track.Payload{"dismiss_reason": reason})
	if err != nil {
		return false, fmt.Errorf("mark dismissed: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE exceptions
		SET status = ?, resolved_at = ?, resolved_by = ?, resolution = ?
		WHERE id = ? AND tenant_id = ? AND status IN (?, ?)
	`),
		string(track.StatusDismissed), formatTime(at), actor, resolutionJSON,
		id, tenant, string(track.StatusOpen), string(track.StatusAcknowledged),
	)
	if err != nil {
		return false, fmt.Errorf("mark dismissed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark dismissed: rows affected: %w", err)
	}
	return affected > 0, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func scanExceptionFields(sc rowScanner) (track.Exception, error) {
	var exc track.Exception
	var kind, status, unit string
	var actualJSON, resolutionJSON, metadataJSON, detectedAt string
	var occurredAt, transitionRef, acknowledgedAt, resolvedAt sql.NullString

	if err := sc.Scan(
		&exc.ID, &exc.Tenant, &exc.ExpectationID, &kind, &status,
		&actualJSON, &occurredAt, &exc.DeviationAmount, &unit, &detectedAt,
		&transitionRef, &acknowledgedAt, &exc.AcknowledgedBy, &resolvedAt,
		&exc.ResolvedBy, &resolutionJSON, &exc.RootCause,
		&exc.CorrectiveAction, &exc.PreventiveAction, &metadataJSON,
	); err != nil {
		return track.Exception{}, err
	}

	exc.Kind = track.ExceptionKind(kind)
	exc.Status = track.ExceptionStatus(status)
	exc.DeviationUnit = track.DeviationUnit(unit)
	exc.TransitionRef = fromNullString(transitionRef)

	var err error
	if exc.ActualValue, err = unmarshalPayload(actualJSON); err != nil {
		return track.Exception{}, err
	}
	if exc.Resolution, err = unmarshalPayload(resolutionJSON); err != nil {
		return track.Exception{}, err
	}
	if exc.Metadata, err = unmarshalPayload(metadataJSON); err != nil {
		return track.Exception{}, err
	}
	if exc.OccurredAt, err = parseNullTime(occurredAt); err != nil {
		return track.Exception{}, err
	}
	if exc.AcknowledgedAt, err = parseNullTime(acknowledgedAt); err != nil {
		return track.Exception{}, err
	}
	if exc.ResolvedAt, err = parseNullTime(resolvedAt); err != nil {
		return track.Exception{}, err
	}
	if exc.DetectedAt, err = parseTime(detectedAt); err != nil {
		return track.Exception{}, err
	}

	return exc, nil
}
