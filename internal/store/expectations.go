package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// expectationColumns is the canonical column list for expectation scans.
const expectationColumns = `id, tenant_id, entity_type, entity_id, kind, belief,
	expected_value, expected_at, version, superseded_by, superseded_at,
	source, created_at, created_by, context`

// CreateExpectationParams carries the inputs for a version-1 expectation.
type CreateExpectationParams struct {
	Tenant        string
	EntityType    track.EntityType
	EntityID      string
	Kind          track.ExpectationKind
	Belief        string
	ExpectedValue track.Payload
	ExpectedAt    *time.Time
	Source        track.Source
	CreatedBy     string
	Context       track.Payload
}

// CreateExpectation records a new belief for an entity at version 1 with no
// supersession pointer.
//
// Fails with ErrCodeInvalidEntityType for an unrecognized entity type,
// ErrCodeInvalidValue for an expected value that does not satisfy the kind's
// schema, and ErrCodeConstraintViolation if the key already has an active
// expectation (callers replan through Supersede instead).
func (s *Store) CreateExpectation(ctx context.Context, p CreateExpectationParams) (track.Expectation, error) {
	if err := track.ValidateTenant(p.Tenant); err != nil {
		return track.Expectation{}, err
	}
	if err := track.ValidateEntityType(p.EntityType); err != nil {
		return track.Expectation{}, err
	}
	if err := track.ValidateKind(p.Kind); err != nil {
		return track.Expectation{}, err
	}
	if err := track.ValidateSource(p.Source); err != nil {
		return track.Expectation{}, err
	}
	if err := track.ValidateExpectedValue(p.Kind, p.ExpectedValue); err != nil {
		return track.Expectation{}, err
	}
	if p.EntityID == "" {
		return track.Expectation{}, &track.TrackError{
			Code:    track.ErrCodeInvalidValue,
			Message: "entity id is required",
			Tenant:  p.Tenant,
		}
	}

	exp := track.Expectation{
		ID:            s.ids.Generate(),
		Tenant:        p.Tenant,
		EntityType:    p.EntityType,
		EntityID:      p.EntityID,
		Kind:          p.Kind,
		Belief:        p.Belief,
		ExpectedValue: p.ExpectedValue,
		ExpectedAt:    p.ExpectedAt,
		Version:       1,
		Source:        p.Source,
		CreatedAt:     s.clock.Now(),
		CreatedBy:     p.CreatedBy,
		Context:       p.Context,
	}

	if err := insertExpectation(ctx, s.db, s, exp); err != nil {
		if isUniqueViolation(err) {
			return track.Expectation{}, track.NewConstraintError(p.Tenant,
				fmt.Sprintf("active expectation already exists for %s/%s kind %s",
					p.EntityType, p.EntityID, p.Kind))
		}
		return track.Expectation{}, fmt.Errorf("create expectation: %w", err)
	}

	return exp, nil
}

// SupersedeParams carries the inputs for replacing an active expectation.
type SupersedeParams struct {
	NewExpectedValue track.Payload
	NewExpectedAt    *time.Time
	Source           track.Source
	CreatedBy        string
	Context          track.Payload
}

// Supersede atomically retires the target expectation and activates a new
// version copying its key. One transaction covers both writes, so no reader
// ever observes zero or two active expectations for the key.
//
// The new version's belief is annotated as a replan and its context carries
// prior_expectation_id linking back to the target.
//
// Fails with ErrCodeNotFound if the target does not exist,
// ErrCodeTenantIsolation if it belongs to another tenant, and
// ErrCodeConstraintViolation if the target was already superseded or a
// concurrent supersede won the race (the partial unique active index and the
// guarded UPDATE below are the serialization points).
func (s *Store) Supersede(ctx context.Context, tenant, expectationID string, p SupersedeParams) (track.Expectation, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Expectation{}, err
	}
	if err := track.ValidateSource(p.Source); err != nil {
		return track.Expectation{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return track.Expectation{}, fmt.Errorf("supersede: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// The retire step below points the target at the new version before
	// that row is inserted, so the self-reference must check at commit.
	if err := s.deferForeignKeys(ctx, tx); err != nil {
		return track.Expectation{}, fmt.Errorf("supersede: %w", err)
	}

	target, err := getExpectationByID(ctx, tx, s, expectationID)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Expectation{}, track.NewNotFoundError(tenant, expectationID)
	}
	if err != nil {
		return track.Expectation{}, fmt.Errorf("supersede: load target: %w", err)
	}
	if target.Tenant != tenant {
		return track.Expectation{}, track.NewTenantIsolationError(tenant, expectationID)
	}
	if target.SupersededBy != nil {
		return track.Expectation{}, track.NewConstraintError(tenant,
			fmt.Sprintf("expectation %s is already superseded by %s", expectationID, *target.SupersededBy))
	}

	if err := track.ValidateExpectedValue(target.Kind, p.NewExpectedValue); err != nil {
		return track.Expectation{}, err
	}

	now := s.clock.Now()
	replCtx := track.Payload{"prior_expectation_id": target.ID}
	for k, v := range p.Context {
		replCtx[k] = v
	}

	next := track.Expectation{
		ID:            s.ids.Generate(),
		Tenant:        target.Tenant,
		EntityType:    target.EntityType,
		EntityID:      target.EntityID,
		Kind:          target.Kind,
		Belief:        fmt.Sprintf("Replan of v%d: %s", target.Version, target.Belief),
		ExpectedValue: p.NewExpectedValue,
		ExpectedAt:    p.NewExpectedAt,
		Version:       target.Version + 1,
		Source:        p.Source,
		CreatedAt:     now,
		CreatedBy:     p.CreatedBy,
		Context:       replCtx,
	}

	// Step 1: retire the target. The guarded WHERE claims the slot; zero
	// rows means a concurrent supersede got there first.
	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE expectations
		SET superseded_by = ?, superseded_at = ?
		WHERE id = ? AND superseded_by IS NULL
	`), next.ID, formatTime(now), target.ID)
	if err != nil {
		return track.Expectation{}, fmt.Errorf("supersede: retire target: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return track.Expectation{}, fmt.Errorf("supersede: rows affected: %w", err)
	}
	if affected == 0 {
		return track.Expectation{}, track.NewConstraintError(tenant,
			fmt.Sprintf("lost supersession race on expectation %s", expectationID))
	}

	// Step 2: activate the new version. The partial unique active index
	// backstops the claim above.
	if err := insertExpectation(ctx, tx, s, next); err != nil {
		if isUniqueViolation(err) {
			return track.Expectation{}, track.NewConstraintError(tenant,
				fmt.Sprintf("lost supersession race on expectation %s", expectationID))
		}
		return track.Expectation{}, fmt.Errorf("supersede: insert new version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return track.Expectation{}, fmt.Errorf("supersede: commit: %w", err)
	}

	return next, nil
}

// GetActive returns the expectation with a null supersession pointer for the
// key, or nil when the key has no standing belief (in which case detection
// cannot raise an exception for it).
func (s *Store) GetActive(ctx context.Context, tenant string, et track.EntityType, entityID string, kind track.ExpectationKind) (*track.Expectation, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return nil, err
	}
	return activeExpectation(ctx, s.db, s, tenant, et, entityID, kind)
}

// ActiveExpectation is the transactional variant of GetActive, used by the
// detector inside its unit of work.
func (t *Tx) ActiveExpectation(ctx context.Context, tenant string, et track.EntityType, entityID string, kind track.ExpectationKind) (*track.Expectation, error) {
	return activeExpectation(ctx, t.tx, t.s, tenant, et, entityID, kind)
}

// GetExpectation retrieves a single expectation by ID.
//
// Fails with ErrCodeNotFound if absent and ErrCodeTenantIsolation if the row
// belongs to another tenant.
func (s *Store) GetExpectation(ctx context.Context, tenant, id string) (track.Expectation, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Expectation{}, err
	}

	exp, err := getExpectationByID(ctx, s.db, s, id)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Expectation{}, track.NewNotFoundError(tenant, id)
	}
	if err != nil {
		return track.Expectation{}, fmt.Errorf("get expectation: %w", err)
	}
	if exp.Tenant != tenant {
		return track.Expectation{}, track.NewTenantIsolationError(tenant, id)
	}
	return exp, nil
}

// History returns every version recorded for a key, oldest first.
// Returns an empty slice (not nil) when the key was never planned.
func (s *Store) History(ctx context.Context, tenant string, et track.EntityType, entityID string, kind track.ExpectationKind) ([]track.Expectation, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+expectationColumns+`
		FROM expectations
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ? AND kind = ?
		ORDER BY version ASC, id ASC
	`), tenant, string(et), entityID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []track.Expectation
	for rows.Next() {
		exp, err := scanExpectation(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	if history == nil {
		history = []track.Expectation{}
	}

	return history, nil
}

func insertExpectation(ctx context.Context, q querier, s *Store, exp track.Expectation) error {
	valueJSON, err := marshalPayload(exp.ExpectedValue)
	if err != nil {
		return err
	}
	contextJSON, err := marshalPayload(exp.Context)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, s.rebind(`
		INSERT INTO expectations
		(id, tenant_id, entity_type, entity_id, kind, belief, expected_value,
		 expected_at, version, superseded_by, superseded_at, source,
		 created_at, created_by, context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?, ?, ?)
	`),
		exp.ID,
		exp.Tenant,
		string(exp.EntityType),
		exp.EntityID,
		string(exp.Kind),
		exp.Belief,
		valueJSON,
		formatNullTime(exp.ExpectedAt),
		exp.Version,
		string(exp.Source),
		formatTime(exp.CreatedAt),
		exp.CreatedBy,
		contextJSON,
	)
	return err
}

func activeExpectation(ctx context.Context, q querier, s *Store, tenant string, et track.EntityType, entityID string, kind track.ExpectationKind) (*track.Expectation, error) {
	row := q.QueryRowContext(ctx, s.rebind(`
		SELECT `+expectationColumns+`
		FROM expectations
		WHERE tenant_id = ? AND entity_type = ? AND entity_id = ? AND kind = ?
		  AND superseded_by IS NULL
	`), tenant, string(et), entityID, string(kind))

	exp, err := scanExpectationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active expectation: %w", err)
	}
	return &exp, nil
}

func getExpectationByID(ctx context.Context, q querier, s *Store, id string) (track.Expectation, error) {
	row := q.QueryRowContext(ctx, s.rebind(`
		SELECT `+expectationColumns+`
		FROM expectations
		WHERE id = ?
	`), id)
	return scanExpectationRow(row)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan code.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpectationFields(sc rowScanner) (track.Expectation, error) {
	var exp track.Expectation
	var entityType, kind, source string
	var valueJSON, contextJSON, createdAt string
	var expectedAt, supersededBy, supersededAt sql.NullString

	if err := sc.Scan(
		&exp.ID, &exp.Tenant, &entityType, &exp.EntityID, &kind, &exp.Belief,
		&valueJSON, &expectedAt, &exp.Version, &supersededBy, &supersededAt,
		&source, &createdAt, &exp.CreatedBy, &contextJSON,
	); err != nil {
		return track.Expectation{}, err
	}

	exp.EntityType = track.EntityType(entityType)
	exp.Kind = track.ExpectationKind(kind)
	exp.Source = track.Source(source)
	exp.SupersededBy = fromNullString(supersededBy)

	value, err := unmarshalPayload(valueJSON)
	if err != nil {
		return track.Expectation{}, err
	}
	exp.ExpectedValue = value

	context, err := unmarshalPayload(contextJSON)
	if err != nil {
		return track.Expectation{}, err
	}
	exp.Context = context

	if exp.ExpectedAt, err = parseNullTime(expectedAt); err != nil {
		return track.Expectation{}, err
	}
	if exp.SupersededAt, err = parseNullTime(supersededAt); err != nil {
		return track.Expectation{}, err
	}
	if exp.CreatedAt, err = parseTime(createdAt); err != nil {
		return track.Expectation{}, err
	}

	return exp, nil
}

// scanExpectation scans a rows cursor into an Expectation struct.
func scanExpectation(rows *sql.Rows) (track.Expectation, error) {
	exp, err := scanExpectationFields(rows)
	if err != nil {
		return track.Expectation{}, fmt.Errorf("scan expectation: %w", err)
	}
	return exp, nil
}

// scanExpectationRow scans a single row into an Expectation struct.
// Passes sql.ErrNoRows through so callers can translate it.
func scanExpectationRow(row *sql.Row) (track.Expectation, error) {
	return scanExpectationFields(row)
}
