// internal/tenant/model.go
//
// `tenants` table row model and the in-memory Tenant aggregate.
//
// Context
// -------
// A tenant is the isolation boundary of the CMS: it owns pages, versions,
// posts, and globals.  Identity (id) is immutable once created.  The
// operational state is captured by two nullable timestamps:
//
//   - SuspendedAt – tenant is temporarily disabled (e.g., billing).
//   - DeletedAt   – tenant is permanently removed.
//
// Either timestamp being non-NULL prevents the lazy-loader from serving
// the tenant.
//
// Schema reference
//
//	CREATE TABLE tenants (
//	    id           CHAR(36)     PRIMARY KEY,
//	    slug         VARCHAR(64)  NOT NULL UNIQUE,
//	    name         VARCHAR(256) NOT NULL,
//	    domain       VARCHAR(256) NOT NULL UNIQUE,
//	    suspended_at TIMESTAMP NULL,
//	    deleted_at   TIMESTAMP NULL,
//	    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	                           ON UPDATE CURRENT_TIMESTAMP
//	);
package tenant

import (
	"encoding/json"
	"time"
)

// Record mirrors one row in the persistent `tenants` table.
type Record struct {
	ID          string     `db:"id" json:"id"`
	Slug        string     `db:"slug" json:"slug"`
	Name        string     `db:"name" json:"name"`
	Domain      string     `db:"domain" json:"domain"`
	SuspendedAt *time.Time `db:"suspended_at" json:"suspendedAt,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

//
// Tenant aggregate
//

// Tenant groups the per-site runtime assets request handlers need: the
// tenants row plus the published globals map, loaded once and treated as
// immutable for the lifetime of the cache entry.
type Tenant struct {
	Meta    Record
	Globals map[string]json.RawMessage // published rows from `globals`
}

//
// Cache entry
//

type entry struct {
	tenant   *Tenant
	lastSeen int64 // UnixNano
}
