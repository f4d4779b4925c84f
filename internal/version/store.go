// internal/version/store.go
//
// Append-only version store.
//
// Context
// -------
// The store is the single durable history mechanism of the CMS: every
// save, restore, clone seed, and wizard seed lands here as a full snapshot
// (no diffs).  Restore is therefore a copy-forward, and there is no merge
// logic anywhere in the system.
//
// Every operation takes an explicit tenant id and treats a tenant mismatch
// exactly like a missing row (ErrNotFound); callers can never learn that a
// page exists under another tenant.
//
// Sequence numbers are assigned inside one transaction: SELECT MAX … FOR
// UPDATE, then INSERT MAX+1.  Two appends racing on the same page from
// separate processes can still collide on the unique key, which surfaces
// as ErrSequenceConflict; the editor simply retries on its next flush.
//
// Notes
// -----
//   - The store is handed its *sqlx.DB at construction; no singletons.
//   - OnAppend lets the bootstrap hang a cache-invalidation hook on every
//     new head without the store knowing who listens.
package version

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/metrics"
)

var (
	// ErrNotFound covers a missing page or version and a tenant mismatch;
	// the two cases are intentionally indistinguishable.
	ErrNotFound = errors.New("version: not found")

	// ErrNoVersions is returned by Latest for a page that was never saved.
	ErrNoVersions = errors.New("version: page has no versions")

	// ErrSequenceConflict reports a concurrent append that lost the race
	// for the next sequence number.
	ErrSequenceConflict = errors.New("version: concurrent append, sequence taken")
)

const cols = "id, page_id, tenant_id, version_number, content_json, meta_json, created_at"

// Store provides tenant-scoped access to page version history.
type Store struct {
	db       *sqlx.DB
	onAppend func(pageID, tenantID string)
}

// NewStore wraps an already-connected control-plane pool.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// OnAppend registers a hook fired after every successful append or
// restore.  Used by the public read path to drop stale cache entries.
func (s *Store) OnAppend(fn func(pageID, tenantID string)) { s.onAppend = fn }

// Append persists a new immutable snapshot for (pageID, tenantID) and
// returns it.  The page must exist under the tenant.
func (s *Store) Append(ctx context.Context, pageID, tenantID string, blocks []block.Block) (*Version, error) {
	return s.append(ctx, pageID, tenantID, blocks, nil)
}

// Latest returns the highest-numbered version, or ErrNoVersions.
func (s *Store) Latest(ctx context.Context, pageID, tenantID string) (*Version, error) {
	const q = `
	    SELECT ` + cols + `
	    FROM   page_versions
	    WHERE  page_id = ? AND tenant_id = ?
	    ORDER  BY version_number DESC
	    LIMIT  1`
	var r row
	if err := s.db.GetContext(ctx, &r, q, pageID, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := s.pageExists(ctx, s.db, pageID, tenantID); err != nil {
				return nil, err
			}
			return nil, ErrNoVersions
		}
		return nil, err
	}
	return r.decode()
}

// List returns the full history, newest first.
func (s *Store) List(ctx context.Context, pageID, tenantID string) ([]Version, error) {
	if err := s.pageExists(ctx, s.db, pageID, tenantID); err != nil {
		return nil, err
	}
	const q = `
	    SELECT ` + cols + `
	    FROM   page_versions
	    WHERE  page_id = ? AND tenant_id = ?
	    ORDER  BY version_number DESC`
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, q, pageID, tenantID); err != nil {
		return nil, err
	}
	out := make([]Version, 0, len(rows))
	for _, r := range rows {
		v, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// ByID fetches one version under the given page and tenant.
func (s *Store) ByID(ctx context.Context, pageID, tenantID, versionID string) (*Version, error) {
	const q = `
	    SELECT ` + cols + `
	    FROM   page_versions
	    WHERE  id = ? AND page_id = ? AND tenant_id = ?
	    LIMIT  1`
	var r row
	if err := s.db.GetContext(ctx, &r, q, versionID, pageID, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.decode()
}

// Restore copies the target version's blocks forward as a brand-new head,
// tagging it with provenance meta.  History is never mutated.
func (s *Store) Restore(ctx context.Context, pageID, tenantID, versionID string) (*Version, error) {
	target, err := s.ByID(ctx, pageID, tenantID, versionID)
	if err != nil {
		return nil, err
	}

	meta := &Meta{RestoredFrom: versionID, RestoredAt: time.Now().UTC()}
	v, err := s.append(ctx, pageID, tenantID, target.Blocks, meta)
	if err != nil {
		return nil, err
	}
	metrics.VersionRestoreTotal.Inc()
	zap.S().Infow("version restored",
		"page", pageID, "tenant", tenantID,
		"from", versionID, "new_number", v.Number,
	)
	return v, nil
}

//
// Internals
//

func (s *Store) append(ctx context.Context, pageID, tenantID string, blocks []block.Block, meta *Meta) (*Version, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.pageExists(ctx, tx, pageID, tenantID); err != nil {
		return nil, err
	}

	v, err := insertTx(ctx, tx, pageID, tenantID, 0, blocks, meta)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.VersionAppendTotal.Inc()
	if s.onAppend != nil {
		s.onAppend(pageID, tenantID)
	}
	return v, nil
}

// queryer lets pageExists run against either the pool or a transaction.
type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func (s *Store) pageExists(ctx context.Context, q queryer, pageID, tenantID string) error {
	var one int
	err := q.GetContext(ctx, &one,
		`SELECT 1 FROM pages WHERE id = ? AND tenant_id = ? LIMIT 1`,
		pageID, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// InsertTx appends a snapshot inside a caller-owned transaction with an
// explicit sequence number.  Page creation and cloning use it to seed
// version 1 atomically with the page row, so a page can never exist
// without history.
func InsertTx(ctx context.Context, tx *sqlx.Tx, pageID, tenantID string, number int, blocks []block.Block) (*Version, error) {
	return insertTx(ctx, tx, pageID, tenantID, number, blocks, nil)
}

// insertTx writes one row.  number == 0 means "assign MAX+1 under lock".
func insertTx(ctx context.Context, tx *sqlx.Tx, pageID, tenantID string, number int, blocks []block.Block, meta *Meta) (*Version, error) {
	if number == 0 {
		var max int
		err := tx.GetContext(ctx, &max,
			`SELECT COALESCE(MAX(version_number), 0)
			   FROM page_versions WHERE page_id = ? FOR UPDATE`, pageID)
		if err != nil {
			return nil, err
		}
		number = max + 1
	}

	contentJSON, err := encodeContent(blocks)
	if err != nil {
		return nil, fmt.Errorf("version: encode content: %w", err)
	}
	var metaJSON any // nil stores SQL NULL
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("version: encode meta: %w", err)
		}
		metaJSON = b
	}

	v := &Version{
		ID:        uuid.NewString(),
		PageID:    pageID,
		TenantID:  tenantID,
		Number:    number,
		Blocks:    block.CloneList(blocks),
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}

	const q = `
	    INSERT INTO page_versions
	           (id, page_id, tenant_id, version_number, content_json, meta_json, created_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		v.ID, v.PageID, v.TenantID, v.Number, contentJSON, metaJSON, v.CreatedAt,
	); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return nil, ErrSequenceConflict
		}
		return nil, err
	}
	return v, nil
}
