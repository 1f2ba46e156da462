package registry_repo

import (
	"context"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
	"orgregistry/internal/domain/registry"
	"orgregistry/internal/infrastructure/storage/postgres"
)

// Compile-time check.
var _ registry.ReferenceCounter = (*ReferenceRepo)(nil)

// ReferenceRepo counts external records that point at an organisation.
// The registry does not own staff affiliations or project links; it
// only needs to know whether any exist before a deactivation.
type ReferenceRepo struct {
	txm *postgres.TxManager
}

// NewReferenceRepo creates the reference counter.
func NewReferenceRepo(txm *postgres.TxManager) *ReferenceRepo {
	return &ReferenceRepo{txm: txm}
}

// CountReferencesTo sums staff affiliations, project links and active
// child organisations pointing at the given organisation.
func (r *ReferenceRepo) CountReferencesTo(ctx context.Context, orgID id.ID) (int64, error) {
	const sql = `
		SELECT
			(SELECT COUNT(*) FROM org_affiliations WHERE organisation_id = $1)
		  + (SELECT COUNT(*) FROM org_project_links WHERE organisation_id = $1)
		  + (SELECT COUNT(*) FROM organisations WHERE parent_id = $1 AND status <> 'inactive')
	`

	var count int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, orgID).Scan(&count); err != nil {
		return 0, apperror.NewUnavailable(err)
	}

	return count, nil
}
