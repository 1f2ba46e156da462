package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/entity"
	"orgregistry/internal/core/id"
)

// fakeRepo is an in-memory Repository for checker and service tests.
type fakeRepo struct {
	orgs map[id.ID]*Organisation

	createErr error
	updateErr error
	getErr    error

	createCalls int
	updateCalls int
	setStatuses []Status
}

func newFakeRepo(orgs ...*Organisation) *fakeRepo {
	r := &fakeRepo{orgs: make(map[id.ID]*Organisation)}
	for _, o := range orgs {
		r.orgs[o.ID] = o
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, org *Organisation) error {
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	r.orgs[org.ID] = org.Clone()
	return nil
}

func (r *fakeRepo) Update(_ context.Context, org *Organisation) error {
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.orgs[org.ID]
	if !ok {
		return apperror.NewNotFound("organisation", org.ID)
	}
	if stored.Version != org.Version {
		return apperror.NewConcurrentModification("organisation", org.ID)
	}
	org.Touch()
	r.orgs[org.ID] = org.Clone()
	return nil
}

func (r *fakeRepo) Get(_ context.Context, orgID id.ID) (*Organisation, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	org, ok := r.orgs[orgID]
	if !ok {
		return nil, apperror.NewNotFound("organisation", orgID)
	}
	return org.Clone(), nil
}

func (r *fakeRepo) FindActiveByName(_ context.Context, name string) (*Organisation, error) {
	for _, org := range r.orgs {
		if org.Status != StatusInactive && strings.EqualFold(org.Name, name) {
			return org.Clone(), nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) (*ListResult, error) {
	result := &ListResult{Limit: filter.Limit, Offset: filter.Offset}
	for _, org := range r.orgs {
		result.Items = append(result.Items, Summary{ID: org.ID, Name: org.Name, Status: org.Status})
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) SetStatus(_ context.Context, orgID id.ID, status Status, actor string) (*Organisation, error) {
	org, ok := r.orgs[orgID]
	if !ok {
		return nil, apperror.NewNotFound("organisation", orgID)
	}
	r.setStatuses = append(r.setStatuses, status)
	org.Status = status
	org.UpdatedBy = actor
	org.Touch()
	return org.Clone(), nil
}

func testOrg(name string, status Status) *Organisation {
	return &Organisation{
		Base:    entity.NewBase(),
		Name:    name,
		OrgType: TypeNGO,
		Status:  status,
	}
}

func TestChecker_DuplicateName(t *testing.T) {
	existing := testOrg("Oxfam", StatusActive)
	repo := newFakeRepo(existing)
	checker := NewChecker(repo, 0)

	candidate := testOrg("oxfam", StatusActive)
	violations, err := checker.Check(context.Background(), candidate, nil)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, apperror.ViolationDuplicateName, violations[0].Code)
	assert.Equal(t, "name", violations[0].Field)
}

func TestChecker_InactiveNameIsFree(t *testing.T) {
	retired := testOrg("Oxfam", StatusInactive)
	repo := newFakeRepo(retired)
	checker := NewChecker(repo, 0)

	candidate := testOrg("Oxfam", StatusActive)
	violations, err := checker.Check(context.Background(), candidate, nil)

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestChecker_OwnNameExcludedOnEdit(t *testing.T) {
	existing := testOrg("Oxfam", StatusActive)
	repo := newFakeRepo(existing)
	checker := NewChecker(repo, 0)

	candidate := existing.Clone()
	violations, err := checker.Check(context.Background(), candidate, &existing.ID)

	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestChecker_ParentNotFound(t *testing.T) {
	repo := newFakeRepo()
	checker := NewChecker(repo, 0)

	missing := id.New()
	candidate := testOrg("UNICEF", StatusActive)
	candidate.ParentID = &missing

	violations, err := checker.Check(context.Background(), candidate, nil)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, apperror.ViolationParentNotFound, violations[0].Code)
	assert.Equal(t, "parentId", violations[0].Field)
}

func TestChecker_InactiveParentRejected(t *testing.T) {
	parent := testOrg("Defunct HQ", StatusInactive)
	repo := newFakeRepo(parent)
	checker := NewChecker(repo, 0)

	candidate := testOrg("Field Office", StatusActive)
	candidate.ParentID = &parent.ID

	violations, err := checker.Check(context.Background(), candidate, nil)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, apperror.ViolationParentNotFound, violations[0].Code)
}

func TestChecker_SelfParentRejected(t *testing.T) {
	org := testOrg("Loop", StatusActive)
	repo := newFakeRepo(org)
	checker := NewChecker(repo, 0)

	candidate := org.Clone()
	candidate.ParentID = &org.ID

	violations, err := checker.Check(context.Background(), candidate, &org.ID)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, apperror.ViolationCyclicHierarchy, violations[0].Code)
}

func TestChecker_DeepCycleDetected(t *testing.T) {
	// a -> b -> c, then editing a to have parent c closes the loop.
	a := testOrg("Alpha", StatusActive)
	b := testOrg("Bravo", StatusActive)
	c := testOrg("Charlie", StatusActive)
	b.ParentID = &a.ID
	c.ParentID = &b.ID
	repo := newFakeRepo(a, b, c)
	checker := NewChecker(repo, 0)

	candidate := a.Clone()
	candidate.ParentID = &c.ID

	violations, err := checker.Check(context.Background(), candidate, &a.ID)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, apperror.ViolationCyclicHierarchy, violations[0].Code)
}

func TestChecker_DepthLimitTreatedAsCycle(t *testing.T) {
	// Chain of 5 ancestors with a limit of 3.
	orgs := make([]*Organisation, 6)
	for i := range orgs {
		orgs[i] = testOrg("Org "+strings.Repeat("x", i+1), StatusActive)
		if i > 0 {
			orgs[i].ParentID = &orgs[i-1].ID
		}
	}
	repo := newFakeRepo(orgs...)
	checker := NewChecker(repo, 3)

	editing := testOrg("Newcomer", StatusActive)
	repo.orgs[editing.ID] = editing
	candidate := editing.Clone()
	candidate.ParentID = &orgs[5].ID

	violations, err := checker.Check(context.Background(), candidate, &editing.ID)

	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, apperror.ViolationCyclicHierarchy, violations[0].Code)
}

func TestChecker_CollectsMultipleViolations(t *testing.T) {
	existing := testOrg("Oxfam", StatusActive)
	repo := newFakeRepo(existing)
	checker := NewChecker(repo, 0)

	missing := id.New()
	candidate := testOrg("Oxfam", StatusActive)
	candidate.ParentID = &missing

	violations, err := checker.Check(context.Background(), candidate, nil)

	require.NoError(t, err)
	require.Len(t, violations, 2)
}

func TestChecker_RepositoryFaultIsError(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = apperror.NewUnavailable(assert.AnError)
	checker := NewChecker(repo, 0)

	missing := id.New()
	candidate := testOrg("UNHCR", StatusActive)
	candidate.ParentID = &missing

	violations, err := checker.Check(context.Background(), candidate, nil)

	require.Error(t, err)
	assert.Empty(t, violations)
}
