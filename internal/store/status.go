package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// RecordStatus upserts the last observed status for a watched entity and
// returns what was recorded before. Runs inside the detector's transaction
// so the status observation and any exception it triggers commit together.
//
// The returned previous status is the detector's edge record: a transition
// only counts as an edge when the previously recorded status was
// non-terminal, which makes duplicate delivery of the same terminal status a
// no-op.
func (t *Tx) RecordStatus(ctx context.Context, tenant string, et track.EntityType, entityID, status string, terminal bool, at time.Time) (prev string, prevTerminal bool, err error) {
	row := t.tx.QueryRowContext(ctx, t.s.rebind(`
		SELECT status, terminal FROM entity_statuses
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
	`), tenant, string(et), entityID)

	var prevTerm int
	err = row.Scan(&prev, &prevTerm)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("record status: read previous: %w", err)
	}
	prevTerminal = prevTerm != 0

	term := 0
	if terminal {
		term = 1
	}
	_, err = t.tx.ExecContext(ctx, t.s.rebind(`
		INSERT INTO entity_statuses (tenant_id, entity_type, entity_id, status, terminal, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, entity_type, entity_id) DO UPDATE SET
			status = excluded.status,
			terminal = excluded.terminal,
			changed_at = excluded.changed_at
	`), tenant, string(et), entityID, status, term, formatTime(at))
	if err != nil {
		return "", false, fmt.Errorf("record status: upsert: %w", err)
	}

	return prev, prevTerminal, nil
}

// LastStatus returns the last recorded status for an entity, or empty when
// the entity has never been observed.
func (s *Store) LastStatus(ctx context.Context, tenant string, et track.EntityType, entityID string) (status string, terminal bool, err error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return "", false, err
	}

	var term int
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT status, terminal FROM entity_statuses
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
	`), tenant, string(et), entityID).Scan(&status, &term)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("last status: %w", err)
	}
	return status, term != 0, nil
}

// OverdueActiveExpectations returns a tenant's active expectations whose
// expected-at instant has passed with no terminal status recorded for the
// entity. These are the non-occurrence candidates the sweeper raises
// exceptions for.
//
// Returns an empty slice (not nil) when nothing is overdue.
func (s *Store) OverdueActiveExpectations(ctx context.Context, tenant string, before time.Time) ([]track.Expectation, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+prefixColumns("e", expectationColumns)+`
		FROM expectations e
		WHERE e.tenant_id = ?
		  AND e.superseded_by IS NULL
		  AND e.expected_at IS NOT NULL
		  AND e.expected_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM entity_statuses es
			WHERE es.tenant_id = e.tenant_id
			  AND es.entity_type = e.entity_type
			  AND es.entity_id = e.entity_id
			  AND es.terminal = 1
		  )
		ORDER BY e.expected_at ASC, e.id ASC
	`), tenant, formatTime(before))
	if err != nil {
		return nil, fmt.Errorf("query overdue expectations: %w", err)
	}
	defer rows.Close()

	var overdue []track.Expectation
	for rows.Next() {
		exp, err := scanExpectation(rows)
		if err != nil {
			return nil, err
		}
		overdue = append(overdue, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue expectations: %w", err)
	}

	if overdue == nil {
		overdue = []track.Expectation{}
	}

	return overdue, nil
}
