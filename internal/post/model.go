// internal/post/model.go
//
// `posts` table row model.
//
// Context
// -------
// Blog posts are simpler than pages: one mutable content document, no
// version history (only page compositions are versioned).  Status gains a
// third state, archived, which hides a post from both feeds without
// deleting it.
//
// Schema reference
//
//	CREATE TABLE posts (
//	    id           CHAR(36)     PRIMARY KEY,
//	    tenant_id    CHAR(36)     NOT NULL,
//	    slug         VARCHAR(100) NOT NULL,
//	    title        VARCHAR(256) NOT NULL,
//	    excerpt      TEXT         NULL,
//	    content_json JSON         NOT NULL,
//	    cover_image  VARCHAR(512) NULL,
//	    status       VARCHAR(12)  NOT NULL DEFAULT 'draft',
//	    published_at TIMESTAMP    NULL,
//	    created_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
//	                              ON UPDATE CURRENT_TIMESTAMP,
//	    UNIQUE KEY uq_tenant_slug (tenant_id, slug)
//	);
package post

import (
	"encoding/json"
	"time"
)

// DefaultFeedLimit matches the posts-feed block default.
const DefaultFeedLimit = 3

// Status is the post lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Post mirrors one row in the `posts` table.
type Post struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"tenantId"`
	Slug        string          `db:"slug" json:"slug"`
	Title       string          `db:"title" json:"title"`
	Excerpt     *string         `db:"excerpt" json:"excerpt,omitempty"`
	Content     json.RawMessage `db:"content_json" json:"content"`
	CoverImage  *string         `db:"cover_image" json:"coverImage,omitempty"`
	Status      Status          `db:"status" json:"status"`
	PublishedAt *time.Time      `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}
