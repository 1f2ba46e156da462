// Package entity provides base types for registry entities.
package entity

import (
	"time"

	"orgregistry/internal/core/id"
)

// Base contains the common fields of persisted registry entities.
type Base struct {
	// ID is the primary key (UUIDv7), immutable after creation
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	// Attributes stores deployment-specific custom fields (JSONB)
	Attributes Attributes `db:"attributes" json:"attributes,omitempty"`

	// Audit fields
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBase creates a Base with generated ID and timestamps.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
// The repository is the authority for the stored timestamp; this keeps the
// in-memory copy consistent for callers that reuse the entity after a write.
func (b *Base) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}
