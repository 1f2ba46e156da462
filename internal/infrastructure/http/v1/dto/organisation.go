package dto

import (
	"time"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/entity"
	"orgregistry/internal/core/id"
	"orgregistry/internal/domain/registry"
)

// CreateOrganisationRequest is the payload for POST /organisations.
// Enum values are passed through as strings; the registry validator
// reports bad values as field violations rather than bind errors.
type CreateOrganisationRequest struct {
	Name       string            `json:"name"`
	Acronym    string            `json:"acronym"`
	OrgType    string            `json:"orgType"`
	Status     string            `json:"status"`
	ParentID   *string           `json:"parentId"`
	Attributes entity.Attributes `json:"attributes"`
}

// ToDomain converts the request, rejecting malformed parent IDs.
func (r *CreateOrganisationRequest) ToDomain() (registry.CreateRequest, error) {
	req := registry.CreateRequest{
		Name:       r.Name,
		Acronym:    r.Acronym,
		OrgType:    r.OrgType,
		Status:     r.Status,
		Attributes: r.Attributes,
	}

	if r.ParentID != nil && *r.ParentID != "" {
		pid, err := id.Parse(*r.ParentID)
		if err != nil {
			return registry.CreateRequest{}, apperror.NewValidationErrors([]apperror.Violation{{
				Field:   "parentId",
				Code:    apperror.ViolationInvalidValue,
				Message: "parentId must be a valid UUID",
			}})
		}
		req.ParentID = &pid
	}

	return req, nil
}

// UpdateOrganisationRequest is the payload for PUT /organisations/:id.
// Absent fields are left unchanged; parentId set to the empty string
// detaches the organisation from its parent.
type UpdateOrganisationRequest struct {
	Name       *string           `json:"name"`
	Acronym    *string           `json:"acronym"`
	OrgType    *string           `json:"orgType"`
	Status     *string           `json:"status"`
	ParentID   *string           `json:"parentId"`
	Attributes entity.Attributes `json:"attributes"`
}

// ToDomain converts the request, rejecting malformed parent IDs.
func (r *UpdateOrganisationRequest) ToDomain() (registry.EditRequest, error) {
	req := registry.EditRequest{
		Name:       r.Name,
		Acronym:    r.Acronym,
		OrgType:    r.OrgType,
		Status:     r.Status,
		Attributes: r.Attributes,
	}

	if r.ParentID != nil {
		if *r.ParentID == "" {
			req.ClearParent = true
		} else {
			pid, err := id.Parse(*r.ParentID)
			if err != nil {
				return registry.EditRequest{}, apperror.NewValidationErrors([]apperror.Violation{{
					Field:   "parentId",
					Code:    apperror.ViolationInvalidValue,
					Message: "parentId must be a valid UUID",
				}})
			}
			req.ParentID = &pid
		}
	}

	return req, nil
}

// ChangeStatusRequest is the payload for POST /organisations/:id/status.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrganisationResponse is the full representation of an organisation.
type OrganisationResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Acronym    string            `json:"acronym,omitempty"`
	OrgType    string            `json:"orgType"`
	Status     string            `json:"status"`
	ParentID   *string           `json:"parentId,omitempty"`
	Version    int               `json:"version"`
	Attributes entity.Attributes `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	UpdatedBy  string            `json:"updatedBy,omitempty"`
}

// FromOrganisation maps the domain record to its API shape.
func FromOrganisation(org *registry.Organisation) OrganisationResponse {
	resp := OrganisationResponse{
		ID:         org.ID.String(),
		Name:       org.Name,
		Acronym:    org.Acronym,
		OrgType:    string(org.OrgType),
		Status:     string(org.Status),
		Version:    org.Version,
		Attributes: org.Attributes,
		CreatedAt:  org.CreatedAt,
		UpdatedAt:  org.UpdatedAt,
		UpdatedBy:  org.UpdatedBy,
	}
	if org.ParentID != nil {
		pid := org.ParentID.String()
		resp.ParentID = &pid
	}
	return resp
}

// OrganisationSummaryResponse is the list-view representation.
type OrganisationSummaryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Acronym   string    `json:"acronym,omitempty"`
	OrgType   string    `json:"orgType"`
	Status    string    `json:"status"`
	ParentID  *string   `json:"parentId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromSummaries maps domain summaries to their API shape.
func FromSummaries(items []registry.Summary) []OrganisationSummaryResponse {
	out := make([]OrganisationSummaryResponse, 0, len(items))
	for _, item := range items {
		resp := OrganisationSummaryResponse{
			ID:        item.ID.String(),
			Name:      item.Name,
			Acronym:   item.Acronym,
			OrgType:   string(item.OrgType),
			Status:    string(item.Status),
			UpdatedAt: item.UpdatedAt,
		}
		if item.ParentID != nil {
			pid := item.ParentID.String()
			resp.ParentID = &pid
		}
		out = append(out, resp)
	}
	return out
}

// DeactivateResponse reports a deactivation outcome.
type DeactivateResponse struct {
	OK            bool  `json:"ok"`
	HasDependents bool  `json:"hasDependents"`
	Dependents    int64 `json:"dependents,omitempty"`
}

// HistoryEntryResponse is one change-history record.
type HistoryEntryResponse struct {
	Action    string         `json:"action"`
	Actor     string         `json:"actor,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
