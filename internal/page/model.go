// internal/page/model.go
//
// `pages` table row model and the draft/publish status type.
//
// Context
// -------
// A Page is a handle onto a version history; it stores no block content
// itself.  Status controls public visibility only: the version sequence
// (content) and the status (visibility) are independent axes.  Publishing
// never creates a version, and saving never changes status.
//
// Schema reference
//
//	CREATE TABLE pages (
//	    id         CHAR(36)     PRIMARY KEY,
//	    tenant_id  CHAR(36)     NOT NULL,
//	    slug       VARCHAR(100) NOT NULL,
//	    title      VARCHAR(256) NOT NULL,
//	    status     VARCHAR(12)  NOT NULL DEFAULT 'draft',
//	    created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
//	                            ON UPDATE CURRENT_TIMESTAMP,
//	    UNIQUE KEY uq_tenant_slug (tenant_id, slug)
//	);
package page

import "time"

// Status is the page lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Page mirrors one row in the `pages` table.
type Page struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Slug      string    `db:"slug" json:"slug"`
	Title     string    `db:"title" json:"title"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Published reports whether the public read path may serve this page.
func (p *Page) Published() bool { return p.Status == StatusPublished }
