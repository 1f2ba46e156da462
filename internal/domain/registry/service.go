package registry

import (
	"context"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/entity"
	"orgregistry/internal/core/id"
	"orgregistry/internal/core/security"
	"orgregistry/internal/core/tx"
	"orgregistry/pkg/logger"
)

// Service orchestrates registry operations: validation, integrity
// checks, persistence, events and audit, in that order. Failed checks
// abort the operation before any write.
type Service struct {
	repo    Repository
	refs    ReferenceCounter
	checker *Checker
	txm     tx.Manager
	events  EventPublisher
	audit   AuditLogger
}

// NewService wires a Service. events and audit may be nil; the
// corresponding side effects are then skipped.
func NewService(
	repo Repository,
	refs ReferenceCounter,
	checker *Checker,
	txm tx.Manager,
	events EventPublisher,
	audit AuditLogger,
) *Service {
	return &Service{
		repo:    repo,
		refs:    refs,
		checker: checker,
		txm:     txm,
		events:  events,
		audit:   audit,
	}
}

// DeactivateResult reports the outcome of a deactivation. HasDependents
// is a warning, not a failure: the record is inactive either way.
type DeactivateResult struct {
	OK            bool  `json:"ok"`
	HasDependents bool  `json:"hasDependents"`
	Dependents    int64 `json:"dependents,omitempty"`
}

// CreateOrganisation validates and persists a new organisation.
// Validation and integrity violations are collected together so the
// caller sees every problem in one response.
func (s *Service) CreateOrganisation(ctx context.Context, req CreateRequest) (*Organisation, error) {
	draft, violations := ValidateCreate(req)

	org := &Organisation{Status: StatusActive}
	draft.Apply(org)

	integrity, err := s.checker.Check(ctx, org, nil)
	if err != nil {
		return nil, normalizeErr(err)
	}

	if err := combineViolations(violations, integrity); err != nil {
		return nil, err
	}

	attrs := org.Attributes
	org.Base = entity.NewBase()
	org.Attributes = attrs
	org.UpdatedBy = security.GetActorID(ctx)

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, org); err != nil {
			return err
		}
		if err := s.logChange(ctx, org.ID, "create", changeSet(nil, org)); err != nil {
			return err
		}
		return s.publish(ctx, Event{
			Type:           EventCreated,
			OrganisationID: org.ID,
			Payload:        summaryOf(org),
		})
	})
	if err != nil {
		return nil, normalizeErr(err)
	}

	logger.Info(ctx, "organisation created", "org_id", org.ID, "name", org.Name)
	return org, nil
}

// EditOrganisation applies a partial update to an existing record.
// Absent fields are untouched. An edit with no fields set is still a
// write: it bumps the version and updated_at exactly once.
func (s *Service) EditOrganisation(ctx context.Context, orgID id.ID, req EditRequest) (*Organisation, error) {
	existing, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, normalizeErr(err)
	}

	draft, violations := ValidateEdit(req)

	candidate := existing.Clone()
	draft.Apply(candidate)

	integrity, err := s.checker.Check(ctx, candidate, &orgID)
	if err != nil {
		return nil, normalizeErr(err)
	}

	if err := combineViolations(violations, integrity); err != nil {
		return nil, err
	}

	candidate.UpdatedBy = security.GetActorID(ctx)

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, candidate); err != nil {
			return err
		}
		if err := s.logChange(ctx, orgID, "update", changeSet(existing, candidate)); err != nil {
			return err
		}
		return s.publish(ctx, Event{
			Type:           EventUpdated,
			OrganisationID: orgID,
			Payload:        summaryOf(candidate),
		})
	})
	if err != nil {
		return nil, normalizeErr(err)
	}

	logger.Info(ctx, "organisation updated", "org_id", orgID, "version", candidate.Version)
	return candidate, nil
}

// DeactivateOrganisation marks a record inactive. Dependent records do
// not veto the transition: the record becomes inactive regardless, and
// the result carries a warning flag so callers can surface that
// dependents still point at it.
func (s *Service) DeactivateOrganisation(ctx context.Context, orgID id.ID) (*DeactivateResult, error) {
	existing, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, normalizeErr(err)
	}

	dependents, err := s.checker.CountDependents(ctx, s.refs, orgID)
	if err != nil {
		return nil, normalizeErr(err)
	}
	result := &DeactivateResult{
		OK:            true,
		HasDependents: dependents > 0,
		Dependents:    dependents,
	}

	if existing.Status == StatusInactive {
		// Already inactive: nothing to write.
		return result, nil
	}

	actor := security.GetActorID(ctx)
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		updated, err := s.repo.SetStatus(ctx, orgID, StatusInactive, actor)
		if err != nil {
			return err
		}
		if err := s.logChange(ctx, orgID, "deactivate", map[string]any{
			"status":     map[string]any{"old": string(existing.Status), "new": string(StatusInactive)},
			"dependents": dependents,
		}); err != nil {
			return err
		}
		return s.publish(ctx, Event{
			Type:           EventDeactivated,
			OrganisationID: orgID,
			Payload: DeactivatedPayload{
				Organisation:  summaryOf(updated),
				HasDependents: result.HasDependents,
				Dependents:    dependents,
			},
		})
	})
	if err != nil {
		return nil, normalizeErr(err)
	}

	logger.Info(ctx, "organisation deactivated",
		"org_id", orgID, "dependents", dependents)
	return result, nil
}

// ChangeStatus sets an explicit lifecycle status, covering reactivation
// and merge marking. Bringing a record back from inactive re-runs the
// integrity checks: its name may have been claimed while it was out.
func (s *Service) ChangeStatus(ctx context.Context, orgID id.ID, status Status) (*Organisation, error) {
	if !status.IsValid() {
		return nil, apperror.NewValidationErrors([]apperror.Violation{{
			Field:   "status",
			Code:    apperror.ViolationInvalidValue,
			Message: "status must be one of: active, inactive, merged",
		}})
	}

	existing, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, normalizeErr(err)
	}
	if existing.Status == status {
		return existing, nil
	}

	if status == StatusInactive {
		if _, err := s.DeactivateOrganisation(ctx, orgID); err != nil {
			return nil, err
		}
		return s.repo.Get(ctx, orgID)
	}

	if existing.Status == StatusInactive {
		candidate := existing.Clone()
		candidate.Status = status
		integrity, err := s.checker.Check(ctx, candidate, &orgID)
		if err != nil {
			return nil, normalizeErr(err)
		}
		if len(integrity) > 0 {
			return nil, apperror.NewIntegrityErrors(integrity)
		}
	}

	actor := security.GetActorID(ctx)
	var updated *Organisation
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		updated, err = s.repo.SetStatus(ctx, orgID, status, actor)
		if err != nil {
			return err
		}
		if err := s.logChange(ctx, orgID, "status_change", map[string]any{
			"status": map[string]any{"old": string(existing.Status), "new": string(status)},
		}); err != nil {
			return err
		}
		eventType := EventUpdated
		if existing.Status == StatusInactive && status == StatusActive {
			eventType = EventReactivated
		}
		return s.publish(ctx, Event{
			Type:           eventType,
			OrganisationID: orgID,
			Payload:        summaryOf(updated),
		})
	})
	if err != nil {
		return nil, normalizeErr(err)
	}

	logger.Info(ctx, "organisation status changed",
		"org_id", orgID, "from", existing.Status, "to", status)
	return updated, nil
}

// GetOrganisation loads a single record by ID.
func (s *Service) GetOrganisation(ctx context.Context, orgID id.ID) (*Organisation, error) {
	org, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return org, nil
}

// ListOrganisations returns a filtered page of summaries. The page size
// is clamped server-side; asking for more than the maximum silently
// returns the maximum.
func (s *Service) ListOrganisations(ctx context.Context, filter ListFilter) (*ListResult, error) {
	filter.Normalize()
	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return result, nil
}

// --- helpers ---

func (s *Service) publish(ctx context.Context, event Event) error {
	if s.events == nil {
		return nil
	}
	return s.events.Publish(ctx, event)
}

func (s *Service) logChange(ctx context.Context, orgID id.ID, action string, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.LogChange(ctx, orgID, action, changes)
}

// combineViolations turns collected violations into a single error.
// Schema violations dominate the response code; pure integrity failures
// are reported as unprocessable instead of bad request.
func combineViolations(validation, integrity []apperror.Violation) error {
	if len(validation) > 0 {
		all := make([]apperror.Violation, 0, len(validation)+len(integrity))
		all = append(all, validation...)
		all = append(all, integrity...)
		return apperror.NewValidationErrors(all)
	}
	if len(integrity) > 0 {
		return apperror.NewIntegrityErrors(integrity)
	}
	return nil
}

// normalizeErr keeps structured errors intact and wraps anything else
// as an infrastructure fault.
func normalizeErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewUnavailable(err)
}

func summaryOf(org *Organisation) Summary {
	return Summary{
		ID:        org.ID,
		Name:      org.Name,
		Acronym:   org.Acronym,
		OrgType:   org.OrgType,
		Status:    org.Status,
		ParentID:  org.ParentID,
		UpdatedAt: org.UpdatedAt,
	}
}

// changeSet builds an old/new diff for the audit trail. A nil old
// record means creation; every set field is recorded as new.
func changeSet(old, updated *Organisation) map[string]any {
	changes := make(map[string]any)

	record := func(field string, oldVal, newVal any) {
		if old == nil {
			changes[field] = map[string]any{"new": newVal}
			return
		}
		if oldVal != newVal {
			changes[field] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	var oldName, oldAcronym string
	var oldType OrgType
	var oldStatus Status
	var oldParent string
	if old != nil {
		oldName = old.Name
		oldAcronym = old.Acronym
		oldType = old.OrgType
		oldStatus = old.Status
		if old.ParentID != nil {
			oldParent = old.ParentID.String()
		}
	}

	var newParent string
	if updated.ParentID != nil {
		newParent = updated.ParentID.String()
	}

	record("name", oldName, updated.Name)
	record("acronym", oldAcronym, updated.Acronym)
	record("org_type", string(oldType), string(updated.OrgType))
	record("status", string(oldStatus), string(updated.Status))
	record("parent_id", oldParent, newParent)

	return changes
}
