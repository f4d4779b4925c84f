// internal/page/repository.go
//
// Page repository: CRUD, clone, and the draft/publish state machine.
//
// Context
// -------
// Every method takes an explicit tenant id and scopes its SQL with
// `tenant_id = ?`; a mismatch is reported as ErrNotFound, identical to a
// missing row.  Creation and cloning are transactional and seed version 1
// through version.InsertTx, so no page ever exists without history and no
// failure leaves a half-committed pair.
//
// Publish flips status first and then notifies the tenant's live site
// best-effort; a failed webhook is logged and counted, never rolled back.
//
// Notes
// -----
//   - The repository is handed its *sqlx.DB at construction; no singletons.
//   - Oxford commas, two spaces after periods.
package page

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/metrics"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/routing"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

var (
	// ErrNotFound covers a missing page and a tenant mismatch alike.
	ErrNotFound = errors.New("page: not found")

	// ErrSlugTaken reports a duplicate slug within the tenant.
	ErrSlugTaken = errors.New("page: slug already in use")
)

var validate = validator.New()

// Revalidator is the outbound cache-bust collaborator fired on publish.
type Revalidator interface {
	Notify(ctx context.Context, liveDomain string) error
}

// Repository provides tenant-scoped access to the `pages` table.
type Repository struct {
	db       *sqlx.DB
	rev      Revalidator
	onChange func(pageID, tenantID string)
}

// NewRepository wraps an already-connected control-plane pool.  rev may be
// nil when no live-site webhook is configured (tests, offline tooling).
func NewRepository(db *sqlx.DB, rev Revalidator) *Repository {
	return &Repository{db: db, rev: rev}
}

// OnStatusChange registers a hook fired after any visibility-affecting
// mutation: publish, set-draft, rename, and delete.  The public read path
// uses it to drop stale cache entries.
func (r *Repository) OnStatusChange(fn func(pageID, tenantID string)) { r.onChange = fn }

//
// Creation
//

// CreateInput carries the user-supplied fields for a new page.
type CreateInput struct {
	Title string `validate:"required"`
	Slug  string `validate:"required"`
}

// Create inserts a draft page and seeds version 1 in one transaction.
// Initial may be nil for an empty composition.
func (r *Repository) Create(ctx context.Context, tenantID string, in CreateInput, initial []block.Block) (*Page, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	p := &Page{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Slug:     routing.MakeSlug(in.Slug),
		Title:    in.Title,
		Status:   StatusDraft,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const q = `
	    INSERT INTO pages (id, tenant_id, slug, title, status)
	    VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, p.ID, p.TenantID, p.Slug, p.Title, p.Status); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	if _, err := version.InsertTx(ctx, tx, p.ID, p.TenantID, 1, initial); err != nil {
		return nil, fmt.Errorf("page: seed version 1: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	zap.S().Infow("page created", "page", p.ID, "tenant", tenantID, "slug", p.Slug)
	return p, nil
}

// Clone duplicates a page under a new slug.  The copy starts as a draft
// regardless of the source status, and its version 1 carries the source's
// latest content.  Nothing is committed when any step fails.
func (r *Repository) Clone(ctx context.Context, pageID, tenantID, newSlug, newTitle string) (*Page, error) {
	src, err := r.ByID(ctx, pageID, tenantID)
	if err != nil {
		return nil, err
	}
	if newTitle == "" {
		newTitle = src.Title + " (Copy)"
	}

	// Latest snapshot of the source, empty when it was never saved.
	var blocks []block.Block
	var vrow struct {
		Content []byte `db:"content_json"`
	}
	err = r.db.GetContext(ctx, &vrow, `
	    SELECT content_json
	    FROM   page_versions
	    WHERE  page_id = ? AND tenant_id = ?
	    ORDER  BY version_number DESC
	    LIMIT  1`, pageID, tenantID)
	switch {
	case err == nil:
		var c struct {
			Sections []block.Block `json:"sections"`
		}
		if err := json.Unmarshal(vrow.Content, &c); err != nil {
			return nil, fmt.Errorf("page: decode source content: %w", err)
		}
		blocks = c.Sections
	case errors.Is(err, sql.ErrNoRows):
		// no versions yet, clone stays empty
	default:
		return nil, err
	}

	return r.Create(ctx, tenantID, CreateInput{Title: newTitle, Slug: newSlug}, blocks)
}

//
// Reads
//

// ByID fetches one page under the tenant.
func (r *Repository) ByID(ctx context.Context, pageID, tenantID string) (*Page, error) {
	return r.get(ctx, `id = ?`, pageID, tenantID)
}

// BySlug fetches one page by its tenant-unique slug.
func (r *Repository) BySlug(ctx context.Context, slug, tenantID string) (*Page, error) {
	return r.get(ctx, `slug = ?`, slug, tenantID)
}

func (r *Repository) get(ctx context.Context, cond, key, tenantID string) (*Page, error) {
	q := `
	    SELECT id, tenant_id, slug, title, status, created_at, updated_at
	    FROM   pages
	    WHERE  ` + cond + ` AND tenant_id = ?
	    LIMIT  1`
	var p Page
	if err := r.db.GetContext(ctx, &p, q, key, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns every page of the tenant, most recently updated first.
func (r *Repository) List(ctx context.Context, tenantID string) ([]Page, error) {
	const q = `
	    SELECT id, tenant_id, slug, title, status, created_at, updated_at
	    FROM   pages
	    WHERE  tenant_id = ?
	    ORDER  BY updated_at DESC`
	var out []Page
	if err := r.db.SelectContext(ctx, &out, q, tenantID); err != nil {
		return nil, err
	}
	return out, nil
}

//
// Mutation
//

// Rename updates title and slug.  Slug collisions surface as ErrSlugTaken.
func (r *Repository) Rename(ctx context.Context, pageID, tenantID, title, slug string) error {
	const q = `
	    UPDATE pages SET title = ?, slug = ?
	    WHERE  id = ? AND tenant_id = ?`
	res, err := r.db.ExecContext(ctx, q, title, routing.MakeSlug(slug), pageID, tenantID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrSlugTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 { // unchanged values also report zero; distinguish from missing
		_, err := r.ByID(ctx, pageID, tenantID)
		return err
	}
	// A renamed slug orphans any payload cached under the old one.
	if r.onChange != nil {
		r.onChange(pageID, tenantID)
	}
	return nil
}

// Delete hard-deletes the page and its versions in one transaction.
func (r *Repository) Delete(ctx context.Context, pageID, tenantID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM page_versions WHERE page_id = ? AND tenant_id = ?`,
		pageID, tenantID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM pages WHERE id = ? AND tenant_id = ?`, pageID, tenantID)
	if err != nil {
		return err
	}
	if err := r.requireRow(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	// The page is gone; cached public payloads must not outlive it.
	if r.onChange != nil {
		r.onChange(pageID, tenantID)
	}
	return nil
}

//
// Draft/publish state machine
//

// Publish makes the page's latest version publicly visible, then pings
// the tenant's live site.  The webhook is best-effort: its failure is
// logged and counted but never rolls back the transition.  A page with
// zero saved versions may be published; the live page is simply empty.
func (r *Repository) Publish(ctx context.Context, pageID, tenantID, liveDomain string) error {
	if err := r.setStatus(ctx, pageID, tenantID, StatusPublished); err != nil {
		return err
	}
	metrics.PublishTotal.WithLabelValues(string(StatusPublished)).Inc()

	if r.rev != nil && liveDomain != "" {
		if err := r.rev.Notify(ctx, liveDomain); err != nil {
			metrics.RevalidateErrorsTotal.Inc()
			zap.S().Warnw("revalidate failed after publish",
				"page", pageID, "tenant", tenantID, "domain", liveDomain, "err", err)
		}
	}
	return nil
}

// SetDraft hides the page from the public read path.  Idempotent; calling
// it on a draft page is a no-op with no side effects.
func (r *Repository) SetDraft(ctx context.Context, pageID, tenantID string) error {
	if err := r.setStatus(ctx, pageID, tenantID, StatusDraft); err != nil {
		return err
	}
	metrics.PublishTotal.WithLabelValues(string(StatusDraft)).Inc()
	return nil
}

func (r *Repository) setStatus(ctx context.Context, pageID, tenantID string, st Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pages SET status = ? WHERE id = ? AND tenant_id = ?`,
		st, pageID, tenantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows for a no-op UPDATE (status already
	// set), so a zero here is either a missing page or an idempotent flip.
	if n == 0 {
		if _, err := r.ByID(ctx, pageID, tenantID); err != nil {
			return err
		}
		return nil
	}
	zap.S().Infow("page status changed", "page", pageID, "tenant", tenantID, "status", st)
	if r.onChange != nil {
		r.onChange(pageID, tenantID)
	}
	return nil
}

// requireRow maps zero affected rows to ErrNotFound.
func (r *Repository) requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
