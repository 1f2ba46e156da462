package registry_repo

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
	"orgregistry/internal/domain/registry"
)

func newTestRepo() *OrganisationRepo {
	// Query-building only; no database round trips in these tests.
	return &OrganisationRepo{}
}

func TestBuildListQuery_NoFilters(t *testing.T) {
	repo := newTestRepo()

	sql, args, err := repo.buildListQuery(registry.ListFilter{}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, sql, "FROM organisations")
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

func TestBuildListQuery_StatusAndType(t *testing.T) {
	repo := newTestRepo()
	status := registry.StatusActive
	orgType := registry.TypeNGO

	sql, args, err := repo.buildListQuery(registry.ListFilter{
		Status:  &status,
		OrgType: &orgType,
	}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, sql, "status = $1")
	assert.Contains(t, sql, "org_type = $2")
	assert.Equal(t, []any{registry.StatusActive, registry.TypeNGO}, args)
}

func TestBuildListQuery_NamePrefix(t *testing.T) {
	repo := newTestRepo()

	sql, args, err := repo.buildListQuery(registry.ListFilter{
		NamePrefix: "Red",
	}).ToSql()

	require.NoError(t, err)
	assert.Contains(t, sql, "name ILIKE $1")
	require.Len(t, args, 1)
	assert.Equal(t, "Red%", args[0])
}

func TestBuildListQuery_PrefixEscapesWildcards(t *testing.T) {
	repo := newTestRepo()

	_, args, err := repo.buildListQuery(registry.ListFilter{
		NamePrefix: "100%_org\\",
	}).ToSql()

	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, `100\%\_org\\%`, args[0])
}

func TestListFilter_NormalizeClampsLimit(t *testing.T) {
	f := registry.ListFilter{Limit: 5000, Offset: -3}
	f.Normalize()

	assert.Equal(t, registry.MaxPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = registry.ListFilter{}
	f.Normalize()
	assert.Equal(t, registry.DefaultPageSize, f.Limit)
}

func TestMapWriteError_ActiveNameConflict(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: activeNameIndex,
	}

	err := mapWriteError(pgErr, id.New())

	assert.True(t, apperror.IsConflict(err))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestMapWriteError_OtherUniqueViolationIsUnavailable(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "organisations_pkey",
	}

	err := mapWriteError(pgErr, id.New())

	assert.True(t, apperror.IsUnavailable(err))
}

func TestMapWriteError_ForeignKeyIsConflict(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503"}

	err := mapWriteError(pgErr, id.New())

	assert.True(t, apperror.IsConflict(err))
}

func TestEscapeLikePattern(t *testing.T) {
	assert.Equal(t, `plain`, escapeLikePattern("plain"))
	assert.Equal(t, `50\%`, escapeLikePattern("50%"))
	assert.Equal(t, `a\_b`, escapeLikePattern("a_b"))
	assert.Equal(t, `c\\d`, escapeLikePattern(`c\d`))
}
