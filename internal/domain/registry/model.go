// Package registry implements the organisation registry: the canonical
// record of organisations, their hierarchy and lifecycle status.
package registry

import (
	"time"

	"orgregistry/internal/core/entity"
	"orgregistry/internal/core/id"
)

// OrgType classifies an organisation.
type OrgType string

const (
	TypeGovernment OrgType = "government"
	TypeNGO        OrgType = "ngo"
	TypeUN         OrgType = "un"
	TypePrivate    OrgType = "private"
	TypeOther      OrgType = "other"
)

// KnownOrgTypes lists the accepted organisation types.
var KnownOrgTypes = []OrgType{TypeGovernment, TypeNGO, TypeUN, TypePrivate, TypeOther}

// IsValid reports whether the type is one of the known values.
func (t OrgType) IsValid() bool {
	for _, known := range KnownOrgTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an organisation.
//
// Inactive records are retained for history but excluded from the
// active-name uniqueness rule and from hierarchy attachment.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusMerged   Status = "merged"
)

// IsValid reports whether the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusMerged:
		return true
	}
	return false
}

// Organisation is the registry aggregate root.
type Organisation struct {
	entity.Base

	// Name is the organisation's full name, unique among non-inactive
	// records (case-insensitive)
	Name string `db:"name" json:"name"`

	// Acronym is an optional short form (e.g. "UNHCR")
	Acronym string `db:"acronym" json:"acronym,omitempty"`

	// OrgType classifies the organisation
	OrgType OrgType `db:"org_type" json:"orgType"`

	// Status is the lifecycle state
	Status Status `db:"status" json:"status"`

	// ParentID links to the parent organisation, nil for root records
	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`
}

// IsActive reports whether the organisation may participate in the
// hierarchy and new relationships.
func (o *Organisation) IsActive() bool {
	return o.Status == StatusActive
}

// Clone returns a deep copy, used to build edit candidates without
// mutating the loaded record.
func (o *Organisation) Clone() *Organisation {
	out := *o
	if o.ParentID != nil {
		pid := *o.ParentID
		out.ParentID = &pid
	}
	if o.Attributes != nil {
		attrs := make(entity.Attributes, len(o.Attributes))
		for k, v := range o.Attributes {
			attrs[k] = v
		}
		out.Attributes = attrs
	}
	return &out
}

// Summary is the list-view projection of an organisation.
type Summary struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Acronym   string    `db:"acronym" json:"acronym,omitempty"`
	OrgType   OrgType   `db:"org_type" json:"orgType"`
	Status    Status    `db:"status" json:"status"`
	ParentID  *id.ID    `db:"parent_id" json:"parentId,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
