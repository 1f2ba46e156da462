package registry

import (
	"context"

	"orgregistry/internal/core/id"
)

// Default and maximum page sizes for List. The maximum is enforced
// server-side regardless of what the client asks for.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ListFilter narrows and pages List results.
// Zero value means "all records, first page".
type ListFilter struct {
	// Status restricts to a single lifecycle state
	Status *Status

	// OrgType restricts to a single organisation type
	OrgType *OrgType

	// NamePrefix matches names starting with the prefix, case-insensitive
	NamePrefix string

	// Pagination
	Limit  int
	Offset int
}

// Normalize clamps pagination to server limits.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult is a page of summaries plus the total match count.
type ListResult struct {
	Items      []Summary `json:"items"`
	TotalCount int64     `json:"totalCount"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// Repository is the persistence port for organisations.
//
// Implementations are the final authority on the active-name uniqueness
// rule: Create and Update must fail with a conflict error when a
// concurrent writer claimed the same name after the integrity check ran.
type Repository interface {
	// Create persists a new organisation.
	Create(ctx context.Context, org *Organisation) error

	// Update persists changes with optimistic locking on Version.
	// Refreshes Version and UpdatedAt on the passed record.
	Update(ctx context.Context, org *Organisation) error

	// Get loads an organisation by ID, NotFound error if absent.
	Get(ctx context.Context, orgID id.ID) (*Organisation, error)

	// FindActiveByName finds a non-inactive organisation by name,
	// case-insensitive. Returns (nil, nil) when no record matches.
	FindActiveByName(ctx context.Context, name string) (*Organisation, error)

	// List returns a filtered, paginated page of summaries ordered by
	// name ascending with ID as tiebreak.
	List(ctx context.Context, filter ListFilter) (*ListResult, error)

	// SetStatus updates only the lifecycle status and returns the
	// refreshed record. NotFound error if absent.
	SetStatus(ctx context.Context, orgID id.ID, status Status, actor string) (*Organisation, error)
}

// ReferenceCounter reports how many external records point at an
// organisation. The registry does not own those records (staff
// affiliations, project links, child organisations) but must know of
// their existence before deactivation.
type ReferenceCounter interface {
	CountReferencesTo(ctx context.Context, orgID id.ID) (int64, error)
}

// Event is a domain event emitted after a successful state change.
type Event struct {
	Type           string `json:"type"`
	OrganisationID id.ID  `json:"organisationId"`
	Payload        any    `json:"payload,omitempty"`
}

// Event types emitted by the service.
const (
	EventCreated     = "organisation.created"
	EventUpdated     = "organisation.updated"
	EventDeactivated = "organisation.deactivated"
	EventReactivated = "organisation.reactivated"
)

// DeactivatedPayload is the payload of a deactivated event. It carries
// the dependent warning so consumers see it without a second lookup.
type DeactivatedPayload struct {
	Organisation  Summary `json:"organisation"`
	HasDependents bool    `json:"hasDependents"`
	Dependents    int64   `json:"dependents,omitempty"`
}

// EventPublisher delivers domain events. Implementations that write to
// a transactional outbox must be called inside the same transaction as
// the state change they describe.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// ChangeEntry is one record of an organisation's change history.
type ChangeEntry struct {
	Action    string         `json:"action"`
	Actor     string         `json:"actor,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// AuditLogger records organisation changes for later review.
type AuditLogger interface {
	LogChange(ctx context.Context, orgID id.ID, action string, changes map[string]any) error
}
