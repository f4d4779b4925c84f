// internal/tenant/repository.go
//
// Tenants-table query helpers.
//
// Context
// -------
// These functions provide access to the `tenants` table for the cache
// loader and admin tooling.  Suspended or deleted rows are excluded at
// SQL level to keep callers simple.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const cols = "id, slug, name, domain, suspended_at, deleted_at, created_at, updated_at"

// AllActive returns every tenant that is neither suspended nor deleted.
// Used by the boot inventory log and admin listings; per-request tenant
// resolution goes through the cache instead.
func AllActive(db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT ` + cols + `
        FROM   tenants
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL`
	var rows []Record
	if err := db.Select(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByDomain fetches a single active tenant row by its live domain.  This
// is the public read path's lookup key (Host header).
func ByDomain(ctx context.Context, db *sqlx.DB, domain string) (*Record, error) {
	return one(ctx, db, `domain = ?`, domain)
}

// BySlug fetches a single active tenant row by its slug, the key the
// authoring API carries.
func BySlug(ctx context.Context, db *sqlx.DB, slug string) (*Record, error) {
	return one(ctx, db, `slug = ?`, slug)
}

// ByID fetches a single active tenant row by primary key.
func ByID(ctx context.Context, db *sqlx.DB, id string) (*Record, error) {
	return one(ctx, db, `id = ?`, id)
}

func one(ctx context.Context, db *sqlx.DB, cond, key string) (*Record, error) {
	q := `
        SELECT ` + cols + `
        FROM   tenants
        WHERE  ` + cond + `
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
