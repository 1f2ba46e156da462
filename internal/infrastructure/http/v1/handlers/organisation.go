package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
	"orgregistry/internal/domain/registry"
	"orgregistry/internal/infrastructure/http/v1/dto"
	"orgregistry/internal/infrastructure/storage/postgres"
)

// OrganisationHandler serves the organisation registry endpoints.
type OrganisationHandler struct {
	*BaseHandler
	service *registry.Service
	audit   *postgres.AuditService
}

// NewOrganisationHandler creates the handler. audit may be nil; the
// history endpoint then returns an empty list.
func NewOrganisationHandler(service *registry.Service, audit *postgres.AuditService) *OrganisationHandler {
	return &OrganisationHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /organisations.
func (h *OrganisationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganisationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	org, err := h.service.CreateOrganisation(c.Request.Context(), domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromOrganisation(org))
}

// Get handles GET /organisations/:id.
func (h *OrganisationHandler) Get(c *gin.Context) {
	orgID, ok := h.parseID(c)
	if !ok {
		return
	}

	org, err := h.service.GetOrganisation(c.Request.Context(), orgID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrganisation(org))
}

// Update handles PUT /organisations/:id.
func (h *OrganisationHandler) Update(c *gin.Context) {
	orgID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateOrganisationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	org, err := h.service.EditOrganisation(c.Request.Context(), orgID, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrganisation(org))
}

// List handles GET /organisations.
// Filters: status, orgType, namePrefix; pagination: limit, offset.
func (h *OrganisationHandler) List(c *gin.Context) {
	filter := registry.ListFilter{
		NamePrefix: c.Query("namePrefix"),
		Limit:      h.ParseIntQuery(c, "limit", 0),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := registry.Status(strings.ToLower(raw))
		if !status.IsValid() {
			h.Error(c, apperror.NewValidation("unknown status filter: "+raw))
			return
		}
		filter.Status = &status
	}

	if raw := strings.TrimSpace(c.Query("orgType")); raw != "" {
		orgType := registry.OrgType(strings.ToLower(raw))
		if !orgType.IsValid() {
			h.Error(c, apperror.NewValidation("unknown orgType filter: "+raw))
			return
		}
		filter.OrgType = &orgType
	}

	result, err := h.service.ListOrganisations(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromSummaries(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Deactivate handles POST /organisations/:id/deactivate.
// Dependent records do not block the call; the response carries a
// warning flag when any still point at the organisation.
func (h *OrganisationHandler) Deactivate(c *gin.Context) {
	orgID, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.service.DeactivateOrganisation(c.Request.Context(), orgID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.DeactivateResponse{
		OK:            result.OK,
		HasDependents: result.HasDependents,
		Dependents:    result.Dependents,
	})
}

// ChangeStatus handles POST /organisations/:id/status.
func (h *OrganisationHandler) ChangeStatus(c *gin.Context) {
	orgID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	org, err := h.service.ChangeStatus(c.Request.Context(), orgID,
		registry.Status(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrganisation(org))
}

// History handles GET /organisations/:id/history.
func (h *OrganisationHandler) History(c *gin.Context) {
	orgID, ok := h.parseID(c)
	if !ok {
		return
	}

	// Confirm the record exists so unknown IDs get a 404, not [].
	if _, err := h.service.GetOrganisation(c.Request.Context(), orgID); err != nil {
		h.Error(c, err)
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)

	entries := []dto.HistoryEntryResponse{}
	if h.audit != nil {
		records, err := h.audit.History(c.Request.Context(), orgID, limit)
		if err != nil {
			h.Error(c, apperror.NewUnavailable(err))
			return
		}
		for _, rec := range records {
			entry := dto.HistoryEntryResponse{
				Action:    rec.Action,
				Actor:     rec.Actor,
				CreatedAt: rec.CreatedAt,
			}
			if len(rec.Changes) > 0 {
				_ = json.Unmarshal(rec.Changes, &entry.Changes)
			}
			entries = append(entries, entry)
		}
	}

	h.OK(c, entries)
}

// parseID parses the :id path parameter.
func (h *OrganisationHandler) parseID(c *gin.Context) (id.ID, bool) {
	orgID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid organisation id"))
		return id.Nil(), false
	}
	return orgID, true
}
