package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
)

func TestValidateCreate_Valid(t *testing.T) {
	draft, violations := ValidateCreate(CreateRequest{
		Name:    "  Red Crescent  ",
		Acronym: " RC ",
		OrgType: "NGO",
	})

	require.Empty(t, violations)
	require.NotNil(t, draft.Name)
	assert.Equal(t, "Red Crescent", *draft.Name)
	require.NotNil(t, draft.Acronym)
	assert.Equal(t, "RC", *draft.Acronym)
	require.NotNil(t, draft.OrgType)
	assert.Equal(t, TypeNGO, *draft.OrgType)
	require.NotNil(t, draft.Status)
	assert.Equal(t, StatusActive, *draft.Status)
}

func TestValidateCreate_CollectsAllViolations(t *testing.T) {
	_, violations := ValidateCreate(CreateRequest{
		Name:    "   ",
		OrgType: "militia",
		Status:  "merged",
	})

	require.Len(t, violations, 3)

	codes := map[string]string{}
	for _, v := range violations {
		codes[v.Field] = v.Code
	}
	assert.Equal(t, apperror.ViolationRequired, codes["name"])
	assert.Equal(t, apperror.ViolationInvalidValue, codes["orgType"])
	assert.Equal(t, apperror.ViolationInvalidValue, codes["status"])
}

func TestValidateCreate_NameTooLong(t *testing.T) {
	_, violations := ValidateCreate(CreateRequest{
		Name:    strings.Repeat("x", MaxNameLength+1),
		OrgType: "other",
	})

	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Field)
	assert.Equal(t, apperror.ViolationTooLong, violations[0].Code)
}

func TestValidateCreate_NameAtBoundary(t *testing.T) {
	_, violations := ValidateCreate(CreateRequest{
		Name:    strings.Repeat("x", MaxNameLength),
		OrgType: "other",
	})
	assert.Empty(t, violations)
}

func TestValidateCreate_NameLengthCountsRunes(t *testing.T) {
	// 200 multibyte runes must pass even though the byte count is larger.
	_, violations := ValidateCreate(CreateRequest{
		Name:    strings.Repeat("ф", MaxNameLength),
		OrgType: "other",
	})
	assert.Empty(t, violations)
}

func TestValidateCreate_ExplicitActiveStatusAccepted(t *testing.T) {
	_, violations := ValidateCreate(CreateRequest{
		Name:    "WFP",
		OrgType: "un",
		Status:  "Active",
	})
	assert.Empty(t, violations)
}

func TestValidateEdit_AbsentFieldsUntouched(t *testing.T) {
	draft, violations := ValidateEdit(EditRequest{})

	assert.Empty(t, violations)
	assert.Nil(t, draft.Name)
	assert.Nil(t, draft.Acronym)
	assert.Nil(t, draft.OrgType)
	assert.Nil(t, draft.Status)
	assert.Nil(t, draft.ParentID)
}

func TestValidateEdit_PartialFields(t *testing.T) {
	name := "  OCHA  "
	status := "MERGED"
	draft, violations := ValidateEdit(EditRequest{
		Name:   &name,
		Status: &status,
	})

	require.Empty(t, violations)
	require.NotNil(t, draft.Name)
	assert.Equal(t, "OCHA", *draft.Name)
	require.NotNil(t, draft.Status)
	assert.Equal(t, StatusMerged, *draft.Status)
	assert.Nil(t, draft.OrgType)
}

func TestValidateEdit_EmptyNameRejected(t *testing.T) {
	name := "   "
	_, violations := ValidateEdit(EditRequest{Name: &name})

	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Field)
	assert.Equal(t, apperror.ViolationRequired, violations[0].Code)
}

func TestValidateEdit_BadStatusAndType(t *testing.T) {
	status := "deleted"
	orgType := "charity"
	_, violations := ValidateEdit(EditRequest{Status: &status, OrgType: &orgType})

	require.Len(t, violations, 2)
}

func TestDraftApply_ClearParentWins(t *testing.T) {
	parent := id.New()
	org := &Organisation{ParentID: &parent}

	draft := Draft{ClearParent: true, ParentID: &parent}
	draft.Apply(org)

	assert.Nil(t, org.ParentID)
}

func TestDraftApply_SetParent(t *testing.T) {
	parent := id.New()
	org := &Organisation{}

	draft, violations := ValidateEdit(EditRequest{ParentID: &parent})
	require.Empty(t, violations)
	draft.Apply(org)

	require.NotNil(t, org.ParentID)
	assert.Equal(t, parent, *org.ParentID)
}
