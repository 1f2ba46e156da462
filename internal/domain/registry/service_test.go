package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
	"orgregistry/internal/core/security"
)

// fakeTxManager runs the callback directly, no real transaction.
type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeRefs struct {
	count int64
	err   error
}

func (r *fakeRefs) CountReferencesTo(context.Context, id.ID) (int64, error) {
	return r.count, r.err
}

type fakePublisher struct {
	events []Event
}

func (p *fakePublisher) Publish(_ context.Context, event Event) error {
	p.events = append(p.events, event)
	return nil
}

type fakeAudit struct {
	entries []string
}

func (a *fakeAudit) LogChange(_ context.Context, _ id.ID, action string, _ map[string]any) error {
	a.entries = append(a.entries, action)
	return nil
}

// racingRepo simulates a concurrent writer: name lookups see nothing,
// so every request passes the pre-write check, and the uniqueness rule
// is enforced only at write time the way the database index does it.
type racingRepo struct {
	*fakeRepo
}

func (r *racingRepo) FindActiveByName(context.Context, string) (*Organisation, error) {
	return nil, nil
}

func (r *racingRepo) Create(ctx context.Context, org *Organisation) error {
	for _, existing := range r.orgs {
		if existing.Status != StatusInactive && strings.EqualFold(existing.Name, org.Name) {
			return apperror.NewConflict("organisation name already in use")
		}
	}
	return r.fakeRepo.Create(ctx, org)
}

type serviceFixture struct {
	svc    *Service
	repo   *fakeRepo
	refs   *fakeRefs
	txm    *fakeTxManager
	events *fakePublisher
	audit  *fakeAudit
}

func newServiceFixture(orgs ...*Organisation) *serviceFixture {
	repo := newFakeRepo(orgs...)
	refs := &fakeRefs{}
	txm := &fakeTxManager{}
	events := &fakePublisher{}
	audit := &fakeAudit{}
	svc := NewService(repo, refs, NewChecker(repo, 0), txm, events, audit)
	return &serviceFixture{svc: svc, repo: repo, refs: refs, txm: txm, events: events, audit: audit}
}

func TestService_CreateOrganisation(t *testing.T) {
	f := newServiceFixture()
	ctx := security.WithActorID(context.Background(), "user-42")

	org, err := f.svc.CreateOrganisation(ctx, CreateRequest{
		Name:    " Save the Children ",
		Acronym: "STC",
		OrgType: "NGO",
	})

	require.NoError(t, err)
	assert.False(t, id.IsNil(org.ID))
	assert.Equal(t, "Save the Children", org.Name)
	assert.Equal(t, TypeNGO, org.OrgType)
	assert.Equal(t, StatusActive, org.Status)
	assert.Equal(t, 1, org.Version)
	assert.Equal(t, "user-42", org.UpdatedBy)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventCreated, f.events.events[0].Type)
	assert.Equal(t, []string{"create"}, f.audit.entries)
	assert.Equal(t, 1, f.txm.calls)
}

func TestService_CreateAggregatesViolations(t *testing.T) {
	existing := testOrg("Oxfam", StatusActive)
	f := newServiceFixture(existing)

	missing := id.New()
	_, err := f.svc.CreateOrganisation(context.Background(), CreateRequest{
		Name:     "Oxfam",
		OrgType:  "charity", // invalid value
		ParentID: &missing,
	})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	// One validation violation plus two integrity violations, all in one
	// response.
	require.Len(t, appErr.Violations, 3)

	// Nothing was written.
	assert.Equal(t, 0, f.repo.createCalls)
	assert.Empty(t, f.events.events)
}

func TestService_CreateIntegrityOnlyIsUnprocessable(t *testing.T) {
	existing := testOrg("Oxfam", StatusActive)
	f := newServiceFixture(existing)

	_, err := f.svc.CreateOrganisation(context.Background(), CreateRequest{
		Name:    "Oxfam",
		OrgType: "ngo",
	})

	require.Error(t, err)
	assert.True(t, apperror.IsIntegrity(err))
	assert.Equal(t, 0, f.repo.createCalls)
}

func TestService_CreateConflictPassthrough(t *testing.T) {
	f := newServiceFixture()
	f.repo.createErr = apperror.NewConflict("organisation name already in use")

	_, err := f.svc.CreateOrganisation(context.Background(), CreateRequest{
		Name:    "MSF",
		OrgType: "ngo",
	})

	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestService_SimultaneousSameNameCreates(t *testing.T) {
	repo := &racingRepo{fakeRepo: newFakeRepo()}
	svc := NewService(repo, &fakeRefs{}, NewChecker(repo, 0), &fakeTxManager{}, nil, nil)

	req := CreateRequest{Name: "Alpha Relief", OrgType: "ngo"}

	first, err := svc.CreateOrganisation(context.Background(), req)
	require.NoError(t, err)

	// The second writer passed validation before the first committed.
	// Exactly one record wins; the loser gets a conflict.
	_, err = svc.CreateOrganisation(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))

	assert.Len(t, repo.orgs, 1)
	stored, getErr := repo.Get(context.Background(), first.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "Alpha Relief", stored.Name)
}

func TestService_EditPartialUpdate(t *testing.T) {
	existing := testOrg("Medecins Sans Frontieres", StatusActive)
	f := newServiceFixture(existing)

	acronym := "MSF"
	updated, err := f.svc.EditOrganisation(context.Background(), existing.ID, EditRequest{
		Acronym: &acronym,
	})

	require.NoError(t, err)
	assert.Equal(t, "MSF", updated.Acronym)
	assert.Equal(t, existing.Name, updated.Name)
	assert.Equal(t, existing.Version+1, updated.Version)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventUpdated, f.events.events[0].Type)
}

func TestService_EmptyEditStillBumpsVersionOnce(t *testing.T) {
	existing := testOrg("IFRC", StatusActive)
	f := newServiceFixture(existing)

	updated, err := f.svc.EditOrganisation(context.Background(), existing.ID, EditRequest{})

	require.NoError(t, err)
	assert.Equal(t, existing.Version+1, updated.Version)
	assert.True(t, updated.UpdatedAt.After(existing.UpdatedAt) || updated.UpdatedAt.Equal(existing.UpdatedAt))
	assert.Equal(t, 1, f.repo.updateCalls)
}

func TestService_EditNotFound(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.EditOrganisation(context.Background(), id.New(), EditRequest{})

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_EditCycleLeavesRecordUnchanged(t *testing.T) {
	parent := testOrg("HQ", StatusActive)
	child := testOrg("Field Office", StatusActive)
	child.ParentID = &parent.ID
	f := newServiceFixture(parent, child)

	// Re-parenting HQ under its own child would close a loop.
	_, err := f.svc.EditOrganisation(context.Background(), parent.ID, EditRequest{
		ParentID: &child.ID,
	})

	require.Error(t, err)
	assert.True(t, apperror.IsIntegrity(err))
	assert.Equal(t, 0, f.repo.updateCalls)

	stored, getErr := f.repo.Get(context.Background(), parent.ID)
	require.NoError(t, getErr)
	assert.Nil(t, stored.ParentID)
	assert.Equal(t, parent.Version, stored.Version)
}

func TestService_DeactivateWithDependentsSucceedsWithWarning(t *testing.T) {
	existing := testOrg("UNHCR", StatusActive)
	f := newServiceFixture(existing)
	f.refs.count = 1

	result, err := f.svc.DeactivateOrganisation(context.Background(), existing.ID)

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.HasDependents)
	assert.EqualValues(t, 1, result.Dependents)

	// The record is inactive, not blocked, and still resolvable.
	stored, getErr := f.repo.Get(context.Background(), existing.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusInactive, stored.Status)

	// The warning rides along on the emitted event.
	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventDeactivated, f.events.events[0].Type)
	payload, ok := f.events.events[0].Payload.(DeactivatedPayload)
	require.True(t, ok)
	assert.True(t, payload.HasDependents)
	assert.EqualValues(t, 1, payload.Dependents)
}

func TestService_DeactivateSucceeds(t *testing.T) {
	existing := testOrg("UNHCR", StatusActive)
	f := newServiceFixture(existing)

	result, err := f.svc.DeactivateOrganisation(context.Background(), existing.ID)

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.False(t, result.HasDependents)

	stored, _ := f.repo.Get(context.Background(), existing.ID)
	assert.Equal(t, StatusInactive, stored.Status)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventDeactivated, f.events.events[0].Type)
	assert.Equal(t, []string{"deactivate"}, f.audit.entries)
}

func TestService_ChangeStatusToInactiveAppliesDependentWarningPolicy(t *testing.T) {
	existing := testOrg("UNHCR", StatusActive)
	f := newServiceFixture(existing)
	f.refs.count = 2

	updated, err := f.svc.ChangeStatus(context.Background(), existing.ID, StatusInactive)

	require.NoError(t, err)
	assert.Equal(t, StatusInactive, updated.Status)
}

func TestService_DeactivateAlreadyInactive(t *testing.T) {
	existing := testOrg("Old Org", StatusInactive)
	f := newServiceFixture(existing)

	result, err := f.svc.DeactivateOrganisation(context.Background(), existing.ID)

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Empty(t, f.repo.setStatuses)
}

func TestService_ReactivateChecksNameAgain(t *testing.T) {
	dormant := testOrg("Oxfam", StatusInactive)
	usurper := testOrg("Oxfam", StatusActive)
	f := newServiceFixture(dormant, usurper)

	_, err := f.svc.ChangeStatus(context.Background(), dormant.ID, StatusActive)

	require.Error(t, err)
	assert.True(t, apperror.IsIntegrity(err))

	stored, _ := f.repo.Get(context.Background(), dormant.ID)
	assert.Equal(t, StatusInactive, stored.Status)
}

func TestService_ReactivateSucceeds(t *testing.T) {
	dormant := testOrg("Oxfam", StatusInactive)
	f := newServiceFixture(dormant)

	updated, err := f.svc.ChangeStatus(context.Background(), dormant.ID, StatusActive)

	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventReactivated, f.events.events[0].Type)
}

func TestService_ChangeStatusNoopWhenUnchanged(t *testing.T) {
	existing := testOrg("WFP", StatusActive)
	f := newServiceFixture(existing)

	updated, err := f.svc.ChangeStatus(context.Background(), existing.ID, StatusActive)

	require.NoError(t, err)
	assert.Equal(t, existing.Version, updated.Version)
	assert.Empty(t, f.events.events)
}

func TestService_ListClampsPageSize(t *testing.T) {
	f := newServiceFixture()

	result, err := f.svc.ListOrganisations(context.Background(), ListFilter{Limit: 5000})

	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, result.Limit)
}

func TestService_ListDefaultsPageSize(t *testing.T) {
	f := newServiceFixture()

	result, err := f.svc.ListOrganisations(context.Background(), ListFilter{})

	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, result.Limit)
}
