// Package registry_repo provides the PostgreSQL implementation of the
// organisation registry persistence ports.
package registry_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
	"orgregistry/internal/domain/registry"
	"orgregistry/internal/infrastructure/storage/postgres"
)

const organisationsTable = "organisations"

// activeNameIndex is the partial unique index that makes the database
// the final authority on the active-name uniqueness rule.
const activeNameIndex = "organisations_active_name_key"

var (
	organisationCols = postgres.ExtractDBColumns[registry.Organisation]()
	summaryCols      = postgres.ExtractDBColumns[registry.Summary]()
)

// Compile-time check.
var _ registry.Repository = (*OrganisationRepo)(nil)

// OrganisationRepo is the PostgreSQL organisation repository.
type OrganisationRepo struct {
	txm *postgres.TxManager
}

// NewOrganisationRepo creates the repository. The transaction manager
// is injected explicitly; repos never pull it out of context themselves.
func NewOrganisationRepo(txm *postgres.TxManager) *OrganisationRepo {
	return &OrganisationRepo{txm: txm}
}

func (r *OrganisationRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *OrganisationRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(organisationCols...).From(organisationsTable)
}

// Create inserts a new organisation using its "db" tags. A lost race on
// the active-name index surfaces as a conflict error.
func (r *OrganisationRepo) Create(ctx context.Context, org *registry.Organisation) error {
	data := postgres.StructToMap(org)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found on organisation")
	}

	q := r.builder().
		Insert(organisationsTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return mapWriteError(err, org.ID)
	}

	return nil
}

// Update modifies an organisation with optimistic locking on version.
// The stored updated_at is forced strictly past its previous value even
// when the wall clock did not move, so repeated edits always produce
// distinct timestamps.
func (r *OrganisationRepo) Update(ctx context.Context, org *registry.Organisation) error {
	data := postgres.StructToMap(org)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found on organisation")
	}

	// Immutable or repo-managed fields stay out of SET.
	delete(data, "id")
	delete(data, "version")
	delete(data, "created_at")
	delete(data, "updated_at")

	q := r.builder().
		Update(organisationsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("GREATEST(now(), updated_at + interval '1 microsecond')")).
		Where(squirrel.Eq{"id": org.ID}).
		Where(squirrel.Eq{"version": org.Version}).
		Suffix("RETURNING version, updated_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	row := querier.QueryRow(ctx, sql, args...)
	if err := row.Scan(&org.Version, &org.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyMissedUpdate(ctx, org.ID)
		}
		return mapWriteError(err, org.ID)
	}

	return nil
}

// classifyMissedUpdate distinguishes a vanished record from a version
// mismatch after an UPDATE matched zero rows.
func (r *OrganisationRepo) classifyMissedUpdate(ctx context.Context, orgID id.ID) error {
	if _, err := r.Get(ctx, orgID); err != nil {
		return err
	}
	return apperror.NewConcurrentModification(organisationsTable, orgID.String())
}

// Get loads an organisation by ID.
func (r *OrganisationRepo) Get(ctx context.Context, orgID id.ID) (*registry.Organisation, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": orgID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var org registry.Organisation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &org, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(organisationsTable, orgID.String())
		}
		return nil, mapReadError(err)
	}

	return &org, nil
}

// FindActiveByName finds a non-inactive organisation by name,
// case-insensitive. Returns (nil, nil) when no record matches.
func (r *OrganisationRepo) FindActiveByName(ctx context.Context, name string) (*registry.Organisation, error) {
	q := r.baseSelect().
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		Where(squirrel.NotEq{"status": registry.StatusInactive}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var org registry.Organisation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &org, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, mapReadError(err)
	}

	return &org, nil
}

// List returns a filtered page of summaries, ordered by name with ID as
// a stable tiebreak. The page size is clamped to the server maximum.
func (r *OrganisationRepo) List(ctx context.Context, filter registry.ListFilter) (*registry.ListResult, error) {
	filter.Normalize()

	result := &registry.ListResult{
		Items:  []registry.Summary{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.buildListQuery(filter)

	countQ := r.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return nil, mapReadError(err)
	}

	q = q.OrderBy("name ASC", "id ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return nil, mapReadError(err)
	}

	return result, nil
}

// buildListQuery applies the filter predicates to a summary SELECT.
func (r *OrganisationRepo) buildListQuery(filter registry.ListFilter) squirrel.SelectBuilder {
	q := r.builder().Select(summaryCols...).From(organisationsTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.OrgType != nil {
		q = q.Where(squirrel.Eq{"org_type": *filter.OrgType})
	}
	if filter.NamePrefix != "" {
		q = q.Where(squirrel.ILike{"name": escapeLikePattern(filter.NamePrefix) + "%"})
	}

	return q
}

// SetStatus updates only the lifecycle status and returns the refreshed
// record.
func (r *OrganisationRepo) SetStatus(ctx context.Context, orgID id.ID, status registry.Status, actor string) (*registry.Organisation, error) {
	q := r.builder().
		Update(organisationsTable).
		Set("status", status).
		Set("updated_by", actor).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("GREATEST(now(), updated_at + interval '1 microsecond')")).
		Where(squirrel.Eq{"id": orgID}).
		Suffix("RETURNING " + strings.Join(organisationCols, ", "))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status update: %w", err)
	}

	var org registry.Organisation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &org, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(organisationsTable, orgID.String())
		}
		return nil, mapWriteError(err, orgID)
	}

	return &org, nil
}

// escapeLikePattern escapes LIKE metacharacters so a prefix search
// cannot turn into a wildcard scan.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// mapWriteError classifies write failures: a unique violation on the
// active-name index is a conflict (a concurrent writer won the name),
// everything else is an infrastructure fault.
func mapWriteError(err error, orgID id.ID) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == activeNameIndex {
			return apperror.NewConflict("organisation name already in use").
				WithDetail("id", orgID.String()).
				WithCause(err)
		}
		if pgErr.Code == "23503" {
			return apperror.NewConflict("referenced organisation no longer exists").
				WithDetail("id", orgID.String()).
				WithCause(err)
		}
	}
	return apperror.NewUnavailable(err)
}

// mapReadError wraps read failures as infrastructure faults.
func mapReadError(err error) error {
	return apperror.NewUnavailable(err)
}
