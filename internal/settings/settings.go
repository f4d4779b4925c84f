// internal/settings/settings.go
//
// Site-wide key-value settings ("globals").
//
// Context
// -------
// Every tenant stores a handful of JSON documents in the `globals` table:
// header, footer, navigation, and a `settings` document carrying the live
// domain, brand color, and default locale.  When a tenant is cold-loaded
// we pull all published rows in one query and cache the map alongside the
// Tenant struct, eliminating per-request SQL traffic.
//
// Workflow
// --------
//  1. Callers supply a *sqlx.DB connected to the control-plane database.
//  2. Each helper executes exactly one parameterised statement, always
//     scoped by tenant_id.
//  3. Values stay json.RawMessage; only the `settings` document gets a
//     typed view (SiteSettings) because the publish path needs the domain.
//
// Notes
// -----
//   - Keys are case-sensitive and unique per tenant (`(tenant_id, key)`).
//   - Oxford commas, two spaces after periods.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a key does not exist for the tenant.
var ErrNotFound = errors.New("settings: key not found")

// Global mirrors one row in the `globals` table.
type Global struct {
	TenantID string          `db:"tenant_id"`
	Key      string          `db:"key"`
	Value    json.RawMessage `db:"value_json"`
	Status   string          `db:"status"` // "draft" or "published"
}

// SiteSettings is the typed view of the `settings` document.
type SiteSettings struct {
	Domain        string `json:"domain"`
	PrimaryColor  string `json:"primaryColor,omitempty"`
	DefaultLocale string `json:"defaultLocale,omitempty"`
}

// AllFor returns every published global for one tenant as key → value.
func AllFor(ctx context.Context, db *sqlx.DB, tenantID string) (map[string]json.RawMessage, error) {
	const q = `
	    SELECT ` + "`key`, value_json" + `
	    FROM   globals
	    WHERE  tenant_id = ?
	      AND  status    = 'published'`
	rows := make([]struct {
		Key   string          `db:"key"`
		Value json.RawMessage `db:"value_json"`
	}, 0, 8)

	if err := db.SelectContext(ctx, &rows, q, tenantID); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Get returns a single global, draft or published.
func Get(ctx context.Context, db *sqlx.DB, tenantID, key string) (*Global, error) {
	const q = `
	    SELECT tenant_id, ` + "`key`, value_json" + `, status
	    FROM   globals
	    WHERE  tenant_id = ? AND ` + "`key`" + ` = ?
	    LIMIT  1`
	var g Global
	if err := db.GetContext(ctx, &g, q, tenantID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Upsert inserts or replaces one global.  Status defaults to published,
// matching the editor's save semantics.
func Upsert(ctx context.Context, db *sqlx.DB, g Global) error {
	if g.Status == "" {
		g.Status = "published"
	}
	const q = `
	    INSERT INTO globals (tenant_id, ` + "`key`" + `, value_json, status)
	    VALUES (?, ?, ?, ?)
	    ON DUPLICATE KEY UPDATE value_json = VALUES(value_json),
	                            status     = VALUES(status)`
	if _, err := db.ExecContext(ctx, q, g.TenantID, g.Key, []byte(g.Value), g.Status); err != nil {
		return fmt.Errorf("settings: upsert %q: %w", g.Key, err)
	}
	return nil
}

// Site decodes the tenant's `settings` document.  Missing document yields
// a zero value, not an error; callers treat an empty Domain as "cannot
// publish yet".
func Site(ctx context.Context, db *sqlx.DB, tenantID string) (SiteSettings, error) {
	g, err := Get(ctx, db, tenantID, "settings")
	if errors.Is(err, ErrNotFound) {
		return SiteSettings{}, nil
	}
	if err != nil {
		return SiteSettings{}, err
	}
	var s SiteSettings
	if err := json.Unmarshal(g.Value, &s); err != nil {
		return SiteSettings{}, fmt.Errorf("settings: decode settings doc: %w", err)
	}
	return s, nil
}
