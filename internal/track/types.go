package track

import "time"

// EntityType identifies the class of watched manufacturing entity.
// Entities are owned by external collaborators and referenced only by the
// opaque (EntityType, EntityID) pair - no schema dependency on the entity.
type EntityType string

const (
	EntityJob       EntityType = "job"
	EntityOperation EntityType = "operation"
	EntityPart      EntityType = "part"
	EntityShipment  EntityType = "shipment"
)

// ValidEntityTypes defines the recognized entity types.
var ValidEntityTypes = map[EntityType]bool{
	EntityJob:       true,
	EntityOperation: true,
	EntityPart:      true,
	EntityShipment:  true,
}

// ExpectationKind categorizes what an expectation is about.
type ExpectationKind string

const (
	KindCompletionTime ExpectationKind = "completion_time"
	KindDuration       ExpectationKind = "duration"
	KindQuantity       ExpectationKind = "quantity"
	KindDelivery       ExpectationKind = "delivery"
)

// ValidExpectationKinds defines the recognized expectation kinds.
var ValidExpectationKinds = map[ExpectationKind]bool{
	KindCompletionTime: true,
	KindDuration:       true,
	KindQuantity:       true,
	KindDelivery:       true,
}

// Source records where an expectation came from.
type Source string

const (
	SourceExternalSync   Source = "external_sync"
	SourceManual         Source = "manual"
	SourceScheduler      Source = "scheduler"
	SourceAutoReplan     Source = "auto_replan"
	SourceSystem         Source = "system"
	SourceBackfill       Source = "backfill"
	SourceEntityCreation Source = "entity_creation"
	SourceEntityUpdate   Source = "entity_update"
	SourceDueDateChange  Source = "due_date_change"
)

// ValidSources defines the recognized provenance sources.
var ValidSources = map[Source]bool{
	SourceExternalSync:   true,
	SourceManual:         true,
	SourceScheduler:      true,
	SourceAutoReplan:     true,
	SourceSystem:         true,
	SourceBackfill:       true,
	SourceEntityCreation: true,
	SourceEntityUpdate:   true,
	SourceDueDateChange:  true,
}

// ExceptionKind classifies the direction of a detected divergence.
type ExceptionKind string

const (
	ExceptionLate ExceptionKind = "late"
	// ExceptionEarly is defined for forward compatibility. The completion
	// path never emits it; see detect.Detector.
	ExceptionEarly         ExceptionKind = "early"
	ExceptionNonOccurrence ExceptionKind = "non_occurrence"
	ExceptionExceeded      ExceptionKind = "exceeded"
	ExceptionUnder         ExceptionKind = "under"
)

// ExceptionStatus is the workflow state of an exception.
type ExceptionStatus string

const (
	StatusOpen         ExceptionStatus = "open"
	StatusAcknowledged ExceptionStatus = "acknowledged"
	StatusResolved     ExceptionStatus = "resolved"
	StatusDismissed    ExceptionStatus = "dismissed"
)

// Terminal reports whether the status admits no further transitions.
func (s ExceptionStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// DeviationUnit is the unit of a deviation amount.
type DeviationUnit string

const (
	UnitMinutes  DeviationUnit = "minutes"
	UnitHours    DeviationUnit = "hours"
	UnitQuantity DeviationUnit = "quantity"
	UnitPercent  DeviationUnit = "percent"
)

// Payload is a free-form JSON object persisted as TEXT.
// Used for expected/actual values, resolution data, context, and metadata.
type Payload map[string]any

// Expectation is a versioned belief about what should happen to a tracked
// entity. Version 1 is created when a plan is first established; each replan
// supersedes the active version with version+1.
type Expectation struct {
	ID         string          `json:"id"`
	Tenant     string          `json:"tenant"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Kind       ExpectationKind `json:"kind"`

	// Belief is the free-text statement of what was expected.
	Belief        string     `json:"belief"`
	ExpectedValue Payload    `json:"expected_value"`
	ExpectedAt    *time.Time `json:"expected_at,omitempty"` // nil for non-time kinds

	Version      int        `json:"version"`
	SupersededBy *string    `json:"superseded_by,omitempty"` // nil while active
	SupersededAt *time.Time `json:"superseded_at,omitempty"`

	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	Context   Payload   `json:"context,omitempty"`
}

// Active reports whether this is the standing belief for its key.
func (e *Expectation) Active() bool {
	return e.SupersededBy == nil
}

// Exception is a recorded divergence between an expectation and observed
// reality. Created only by the detector; mutated only by the workflow.
type Exception struct {
	ID            string          `json:"id"`
	Tenant        string          `json:"tenant"`
	ExpectationID string          `json:"expectation_id"`
	Kind          ExceptionKind   `json:"kind"`
	Status        ExceptionStatus `json:"status"`

	ActualValue     Payload       `json:"actual_value,omitempty"`
	OccurredAt      *time.Time    `json:"occurred_at,omitempty"` // nil for non_occurrence
	DeviationAmount float64       `json:"deviation_amount"`
	DeviationUnit   DeviationUnit `json:"deviation_unit"`
	DetectedAt      time.Time     `json:"detected_at"`

	// TransitionRef optionally identifies the status transition that
	// triggered detection, for cross-referencing the collaborator's audit log.
	TransitionRef *string `json:"transition_ref,omitempty"`

	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`

	Resolution       Payload `json:"resolution,omitempty"`
	RootCause        string  `json:"root_cause,omitempty"`
	CorrectiveAction string  `json:"corrective_action,omitempty"`
	PreventiveAction string  `json:"preventive_action,omitempty"`

	Metadata Payload `json:"metadata,omitempty"`
}

// Stats aggregates a tenant's exception counts and resolution latency.
// Pure read model, recomputed on every call.
type Stats struct {
	OpenCount         int `json:"open_count"`
	AcknowledgedCount int `json:"acknowledged_count"`
	ResolvedCount     int `json:"resolved_count"`
	DismissedCount    int `json:"dismissed_count"`
	TotalCount        int `json:"total_count"`
	// AvgResolutionTimeHours is computed over rows with a non-null
	// resolved-at, as (resolvedAt - detectedAt). Zero when nothing resolved.
	AvgResolutionTimeHours float64 `json:"avg_resolution_time_hours"`
}
