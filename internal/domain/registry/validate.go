package registry

import (
	"strings"
	"unicode/utf8"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/entity"
	"orgregistry/internal/core/id"
)

// MaxNameLength is the longest accepted organisation name, in runes.
const MaxNameLength = 200

// CreateRequest is the full payload for creating an organisation.
// Enum fields arrive as strings so the validator can report bad values
// as violations instead of failing at decode time.
type CreateRequest struct {
	Name       string
	Acronym    string
	OrgType    string
	Status     string // optional, must be "active" when present
	ParentID   *id.ID
	Attributes entity.Attributes
}

// EditRequest is a partial payload: nil fields are left unchanged.
type EditRequest struct {
	Name        *string
	Acronym     *string
	OrgType     *string
	Status      *string
	ParentID    *id.ID
	ClearParent bool
	Attributes  entity.Attributes
}

// Draft holds the normalized fields that survived validation.
// Only non-nil fields are applied to the target record.
type Draft struct {
	Name        *string
	Acronym     *string
	OrgType     *OrgType
	Status      *Status
	ParentID    *id.ID
	ClearParent bool
	Attributes  entity.Attributes
}

// Apply copies the draft's present fields onto the organisation.
func (d *Draft) Apply(org *Organisation) {
	if d.Name != nil {
		org.Name = *d.Name
	}
	if d.Acronym != nil {
		org.Acronym = *d.Acronym
	}
	if d.OrgType != nil {
		org.OrgType = *d.OrgType
	}
	if d.Status != nil {
		org.Status = *d.Status
	}
	if d.ClearParent {
		org.ParentID = nil
	} else if d.ParentID != nil {
		pid := *d.ParentID
		org.ParentID = &pid
	}
	if d.Attributes != nil {
		org.Attributes = d.Attributes
	}
}

// ValidateCreate normalizes and checks a full create payload.
// All field problems are collected; the checks never stop at the first
// failure and never panic on malformed input.
func ValidateCreate(req CreateRequest) (Draft, []apperror.Violation) {
	var violations []apperror.Violation
	draft := Draft{Attributes: req.Attributes}

	name := strings.TrimSpace(req.Name)
	if vs := checkNameValue(name); len(vs) > 0 {
		violations = append(violations, vs...)
	} else {
		draft.Name = &name
	}

	acronym := strings.TrimSpace(req.Acronym)
	draft.Acronym = &acronym

	orgType, vs := checkTypeValue(req.OrgType, true)
	if len(vs) > 0 {
		violations = append(violations, vs...)
	} else {
		draft.OrgType = &orgType
	}

	// New records are always active. An explicit status is accepted
	// only when it says so.
	status := StatusActive
	if s := strings.ToLower(strings.TrimSpace(req.Status)); s != "" && s != string(StatusActive) {
		violations = append(violations, apperror.Violation{
			Field:   "status",
			Code:    apperror.ViolationInvalidValue,
			Message: "new organisations must be created with status \"active\"",
		})
	}
	draft.Status = &status

	if req.ParentID != nil {
		pid := *req.ParentID
		draft.ParentID = &pid
	}

	return draft, violations
}

// ValidateEdit normalizes and checks a partial edit payload.
// Absent fields produce no violations and no draft entries.
func ValidateEdit(req EditRequest) (Draft, []apperror.Violation) {
	var violations []apperror.Violation
	draft := Draft{ClearParent: req.ClearParent, Attributes: req.Attributes}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if vs := checkNameValue(name); len(vs) > 0 {
			violations = append(violations, vs...)
		} else {
			draft.Name = &name
		}
	}

	if req.Acronym != nil {
		acronym := strings.TrimSpace(*req.Acronym)
		draft.Acronym = &acronym
	}

	if req.OrgType != nil {
		orgType, vs := checkTypeValue(*req.OrgType, true)
		if len(vs) > 0 {
			violations = append(violations, vs...)
		} else {
			draft.OrgType = &orgType
		}
	}

	if req.Status != nil {
		status := Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.IsValid() {
			violations = append(violations, apperror.Violation{
				Field:   "status",
				Code:    apperror.ViolationInvalidValue,
				Message: "status must be one of: active, inactive, merged",
			})
		} else {
			draft.Status = &status
		}
	}

	if req.ParentID != nil && !req.ClearParent {
		pid := *req.ParentID
		draft.ParentID = &pid
	}

	return draft, violations
}

func checkNameValue(name string) []apperror.Violation {
	if name == "" {
		return []apperror.Violation{{
			Field:   "name",
			Code:    apperror.ViolationRequired,
			Message: "name is required",
		}}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return []apperror.Violation{{
			Field:   "name",
			Code:    apperror.ViolationTooLong,
			Message: "name must not exceed 200 characters",
		}}
	}
	return nil
}

func checkTypeValue(raw string, required bool) (OrgType, []apperror.Violation) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		if !required {
			return "", nil
		}
		return "", []apperror.Violation{{
			Field:   "orgType",
			Code:    apperror.ViolationRequired,
			Message: "orgType is required",
		}}
	}
	orgType := OrgType(value)
	if !orgType.IsValid() {
		return "", []apperror.Violation{{
			Field:   "orgType",
			Code:    apperror.ViolationInvalidValue,
			Message: "orgType must be one of: government, ngo, un, private, other",
		}}
	}
	return orgType, nil
}
