// internal/post/repository.go
//
// Post repository.  Same tenant-scoping rules as the page repository:
// every statement carries `tenant_id = ?`, and a mismatch reads as
// ErrNotFound.
package post

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/routing"
)

var (
	ErrNotFound  = errors.New("post: not found")
	ErrSlugTaken = errors.New("post: slug already in use")
)

var validate = validator.New()

const cols = "id, tenant_id, slug, title, excerpt, content_json, cover_image, status, published_at, created_at, updated_at"

// Repository provides tenant-scoped access to the `posts` table.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps an already-connected control-plane pool.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

// SaveInput carries the editable fields of a post.
type SaveInput struct {
	Title      string `validate:"required"`
	Slug       string `validate:"required"`
	Excerpt    string
	Content    json.RawMessage
	CoverImage string
	Status     Status
}

// Save upserts a post.  An empty id creates; a non-empty id updates the
// existing row under the tenant.  Publishing stamps published_at.
func (r *Repository) Save(ctx context.Context, postID, tenantID string, in SaveInput) (*Post, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if in.Content == nil {
		in.Content = json.RawMessage(`{}`)
	}

	var publishedAt any
	if in.Status == StatusPublished {
		publishedAt = time.Now().UTC()
	}
	slug := routing.MakeSlug(in.Slug)

	if postID == "" {
		postID = uuid.NewString()
		const q = `
		    INSERT INTO posts
		           (id, tenant_id, slug, title, excerpt, content_json, cover_image, status, published_at)
		    VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?)`
		if _, err := r.db.ExecContext(ctx, q,
			postID, tenantID, slug, in.Title, in.Excerpt,
			[]byte(in.Content), in.CoverImage, in.Status, publishedAt,
		); err != nil {
			return nil, mapDup(err)
		}
	} else {
		const q = `
		    UPDATE posts
		    SET    slug = ?, title = ?, excerpt = NULLIF(?, ''), content_json = ?,
		           cover_image = NULLIF(?, ''), status = ?, published_at = ?
		    WHERE  id = ? AND tenant_id = ?`
		// Zero affected rows can mean either missing or unchanged; the
		// read below settles existence either way.
		if _, err := r.db.ExecContext(ctx, q,
			slug, in.Title, in.Excerpt, []byte(in.Content),
			in.CoverImage, in.Status, publishedAt, postID, tenantID); err != nil {
			return nil, mapDup(err)
		}
	}
	return r.ByID(ctx, postID, tenantID)
}

// ByID fetches one post under the tenant.
func (r *Repository) ByID(ctx context.Context, postID, tenantID string) (*Post, error) {
	const q = `SELECT ` + cols + ` FROM posts WHERE id = ? AND tenant_id = ? LIMIT 1`
	var p Post
	if err := r.db.GetContext(ctx, &p, q, postID, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns the tenant's posts, most recently updated first.
func (r *Repository) List(ctx context.Context, tenantID string) ([]Post, error) {
	const q = `SELECT ` + cols + ` FROM posts WHERE tenant_id = ? ORDER BY updated_at DESC`
	var out []Post
	if err := r.db.SelectContext(ctx, &out, q, tenantID); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPublished returns published posts for the public feed, newest first,
// capped at limit (0 means no cap).
func (r *Repository) ListPublished(ctx context.Context, tenantID string, limit int) ([]Post, error) {
	q := `SELECT ` + cols + `
	      FROM posts
	      WHERE tenant_id = ? AND status = 'published'
	      ORDER BY published_at DESC`
	args := []any{tenantID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []Post
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Archive hides a post from feeds without deleting it.  Idempotent.
func (r *Repository) Archive(ctx context.Context, postID, tenantID string) error {
	return r.setStatus(ctx, postID, tenantID, StatusArchived)
}

// Delete removes a post permanently.
func (r *Repository) Delete(ctx context.Context, postID, tenantID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ? AND tenant_id = ?`, postID, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) setStatus(ctx context.Context, postID, tenantID string, st Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = ? WHERE id = ? AND tenant_id = ?`,
		st, postID, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.ByID(ctx, postID, tenantID)
		return err
	}
	return nil
}

func mapDup(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrSlugTaken
	}
	return err
}
