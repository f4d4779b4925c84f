// internal/version/model.go
//
// `page_versions` table row model.
//
// Context
// -------
// A Version is one immutable, sequence-numbered snapshot of a page's full
// block list.  Rows are append-only: never updated, never reordered, never
// deleted (page deletion cascades, nothing else touches them).
//
// Schema reference
//
//	CREATE TABLE page_versions (
//	    id             CHAR(36)     PRIMARY KEY,
//	    page_id        CHAR(36)     NOT NULL,
//	    tenant_id      CHAR(36)     NOT NULL,
//	    version_number INT UNSIGNED NOT NULL,
//	    content_json   JSON         NOT NULL,
//	    meta_json      JSON         NULL,
//	    created_at     TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    UNIQUE KEY uq_page_version (page_id, version_number),
//	    KEY idx_page (page_id)
//	);
//
// tenant_id is denormalized onto every row so isolation checks never need
// a join.  The unique key is the backstop for the read-max-then-write
// sequence assignment under concurrent appends.
package version

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
)

// Meta records the provenance of a snapshot.  Only restores set it.
type Meta struct {
	RestoredFrom string    `json:"restored_from,omitempty"`
	RestoredAt   time.Time `json:"restored_at,omitempty"`
}

// Version is the decoded form handed to callers.
type Version struct {
	ID        string        `json:"id"`
	PageID    string        `json:"pageId"`
	TenantID  string        `json:"tenantId"`
	Number    int           `json:"versionNumber"`
	Blocks    []block.Block `json:"sections"`
	Meta      *Meta         `json:"meta,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// row is the scan target; content and meta stay raw until decoded.
// Meta must be a plain []byte: meta_json is NULL on every non-restore
// row, and only *[]byte accepts a nil driver value.
type row struct {
	ID        string          `db:"id"`
	PageID    string          `db:"page_id"`
	TenantID  string          `db:"tenant_id"`
	Number    int             `db:"version_number"`
	Content   json.RawMessage `db:"content_json"`
	Meta      []byte          `db:"meta_json"`
	CreatedAt time.Time       `db:"created_at"`
}

// content is the stored JSON envelope: {"sections": [ …blocks… ]}.
type content struct {
	Sections []block.Block `json:"sections"`
}

func encodeContent(blocks []block.Block) ([]byte, error) {
	if blocks == nil {
		blocks = []block.Block{}
	}
	return json.Marshal(content{Sections: blocks})
}

func (r row) decode() (*Version, error) {
	var c content
	if err := json.Unmarshal(r.Content, &c); err != nil {
		return nil, fmt.Errorf("version %s: decode content: %w", r.ID, err)
	}
	v := &Version{
		ID:        r.ID,
		PageID:    r.PageID,
		TenantID:  r.TenantID,
		Number:    r.Number,
		Blocks:    c.Sections,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Meta) > 0 && string(r.Meta) != "null" {
		v.Meta = new(Meta)
		if err := json.Unmarshal(r.Meta, v.Meta); err != nil {
			return nil, fmt.Errorf("version %s: decode meta: %w", r.ID, err)
		}
	}
	return v, nil
}
