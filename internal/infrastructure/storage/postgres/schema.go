package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements creates the registry tables. The partial unique
// index on lower(name) enforces the active-name uniqueness rule at
// commit time; inactive records keep their name without blocking reuse.
//
// org_affiliations and org_project_links are owned by other modules in
// a full deployment; they are created here so reference counting and
// local development work against a single database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organisations (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		acronym     TEXT NOT NULL DEFAULT '',
		org_type    TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'active',
		parent_id   UUID REFERENCES organisations(id),
		version     INTEGER NOT NULL DEFAULT 1,
		attributes  JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_by  TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS organisations_active_name_key
		ON organisations (lower(name))
		WHERE status <> 'inactive'`,

	`CREATE INDEX IF NOT EXISTS organisations_parent_idx
		ON organisations (parent_id)
		WHERE parent_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS organisations_status_idx
		ON organisations (status)`,

	`CREATE INDEX IF NOT EXISTS organisations_name_idx
		ON organisations (name, id)`,

	`CREATE TABLE IF NOT EXISTS org_affiliations (
		id              UUID PRIMARY KEY,
		organisation_id UUID NOT NULL REFERENCES organisations(id),
		person_ref      TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS org_affiliations_org_idx
		ON org_affiliations (organisation_id)`,

	`CREATE TABLE IF NOT EXISTS org_project_links (
		id              UUID PRIMARY KEY,
		organisation_id UUID NOT NULL REFERENCES organisations(id),
		project_ref     TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS org_project_links_org_idx
		ON org_project_links (organisation_id)`,

	`CREATE TABLE IF NOT EXISTS sys_outbox (
		id             UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   UUID NOT NULL,
		event_type     TEXT NOT NULL,
		payload        JSONB,
		status         TEXT NOT NULL DEFAULT 'pending',
		retry_count    INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT,
		next_retry_at  TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at   TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS sys_outbox_pending_idx
		ON sys_outbox (created_at)
		WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS sys_audit (
		id                 UUID PRIMARY KEY,
		entity_type        TEXT NOT NULL,
		entity_id          UUID NOT NULL,
		action             TEXT NOT NULL,
		actor              TEXT NOT NULL DEFAULT '',
		changes            JSONB,
		changes_compressed BYTEA,
		compression_algo   TEXT NOT NULL DEFAULT 'none',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS sys_audit_entity_idx
		ON sys_audit (entity_type, entity_id, created_at DESC)`,
}

// EnsureSchema creates all registry tables and indexes if they do not
// exist. Used by the seed tool and local development; production
// deployments run migrations instead.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
