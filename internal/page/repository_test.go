// internal/page/repository_test.go
//
// Unit-tests for the page repository using sqlmock.
//
// Run: go test ./internal/page -v

package page

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const testTenant = "22222222-2222-2222-2222-222222222222"

// fakeRevalidator records webhook calls.
type fakeRevalidator struct {
	domains []string
	err     error
}

func (f *fakeRevalidator) Notify(_ context.Context, liveDomain string) error {
	f.domains = append(f.domains, liveDomain)
	return f.err
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func pageRow(id, slug string, st Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "slug", "title", "status", "created_at", "updated_at",
	}).AddRow(id, testTenant, slug, "Title", st, time.Now(), time.Now())
}

func TestCreateSeedsVersionOne(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO pages (id, tenant_id, slug, title, status) VALUES (?, ?, ?, ?, ?)`,
	)).WithArgs(sqlmock.AnyArg(), testTenant, "about-us", "About Us", StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO page_versions`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), testTenant, 1, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := r.Create(context.Background(), testTenant,
		CreateInput{Title: "About Us", Slug: "About Us!"}, nil)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.Slug != "about-us" {
		t.Fatalf("slug not normalized: %q", p.Slug)
	}
	if p.Status != StatusDraft {
		t.Fatalf("new page must start as draft, got %q", p.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	db, _ := newMock(t)
	r := NewRepository(db, nil)

	if _, err := r.Create(context.Background(), testTenant, CreateInput{Title: "x"}, nil); err == nil {
		t.Fatal("expected validation error for missing slug")
	}
}

func TestCreateDuplicateSlug(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pages`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate"})
	mock.ExpectRollback()

	_, err := r.Create(context.Background(), testTenant, CreateInput{Title: "t", Slug: "home"}, nil)
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCloneCopiesLatestContent(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM pages WHERE id = ? AND tenant_id = ? LIMIT 1`,
	)).WithArgs("src", testTenant).
		WillReturnRows(pageRow("src", "home", StatusPublished))

	content := []byte(`{"sections":[{"id":"b1","type":"hero","props":{"title":"Hi","subtitle":"","image":""}}]}`)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT content_json FROM page_versions WHERE page_id = ? AND tenant_id = ? ORDER BY version_number DESC LIMIT 1`,
	)).WithArgs("src", testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"content_json"}).AddRow(content))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pages`)).
		WithArgs(sqlmock.AnyArg(), testTenant, "home-copy", "Title (Copy)", StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO page_versions`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), testTenant, 1, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := r.Clone(context.Background(), "src", testTenant, "home copy", "")
	if err != nil {
		t.Fatalf("Clone error: %v", err)
	}
	if p.Status != StatusDraft {
		t.Fatalf("clone must start as draft, got %q", p.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPublishNotifiesLiveSite(t *testing.T) {
	db, mock := newMock(t)
	rev := &fakeRevalidator{}
	r := NewRepository(db, rev)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE pages SET status = ? WHERE id = ? AND tenant_id = ?`,
	)).WithArgs(StatusPublished, "p1", testTenant).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Publish(context.Background(), "p1", testTenant, "example.com"); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(rev.domains) != 1 || rev.domains[0] != "example.com" {
		t.Fatalf("revalidator not notified: %#v", rev.domains)
	}
}

func TestPublishSurvivesWebhookFailure(t *testing.T) {
	db, mock := newMock(t)
	rev := &fakeRevalidator{err: errors.New("boom")}
	r := NewRepository(db, rev)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pages SET status = ?`)).
		WithArgs(StatusPublished, "p1", testTenant).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The webhook error is swallowed; the transition sticks.
	if err := r.Publish(context.Background(), "p1", testTenant, "example.com"); err != nil {
		t.Fatalf("Publish must not propagate webhook failure, got %v", err)
	}
}

func TestSetDraftIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	// MySQL reports zero affected rows when the status is unchanged; the
	// repository re-checks existence instead of reporting not-found.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pages SET status = ?`)).
		WithArgs(StatusDraft, "p1", testTenant).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM pages WHERE id = ? AND tenant_id = ? LIMIT 1`,
	)).WithArgs("p1", testTenant).
		WillReturnRows(pageRow("p1", "home", StatusDraft))

	if err := r.SetDraft(context.Background(), "p1", testTenant); err != nil {
		t.Fatalf("SetDraft on a draft page must be a no-op, got %v", err)
	}
}

func TestSetStatusTenantMismatch(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE pages SET status = ?`)).
		WithArgs(StatusPublished, "p1", "other-tenant").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM pages WHERE id = ?`)).
		WithArgs("p1", "other-tenant").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := r.Publish(context.Background(), "p1", "other-tenant", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameDuplicateSlug(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE pages SET title = ?, slug = ? WHERE id = ? AND tenant_id = ?`,
	)).WithArgs("New", "taken", "p1", testTenant).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate"})

	err := r.Rename(context.Background(), "p1", testTenant, "New", "Taken")
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestRenameFiresChangeHook(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	var hookPage string
	r.OnStatusChange(func(pageID, _ string) { hookPage = pageID })

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE pages SET title = ?, slug = ? WHERE id = ? AND tenant_id = ?`,
	)).WithArgs("New", "new-slug", "p1", testTenant).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Rename(context.Background(), "p1", testTenant, "New", "New Slug"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	// Payloads cached under the old slug must be purged.
	if hookPage != "p1" {
		t.Fatal("rename did not fire the change hook")
	}
}

func TestDeleteRemovesHistoryFirst(t *testing.T) {
	db, mock := newMock(t)
	r := NewRepository(db, nil)

	var hookPage, hookTenant string
	r.OnStatusChange(func(pageID, tenantID string) { hookPage, hookTenant = pageID, tenantID })

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM page_versions WHERE page_id = ? AND tenant_id = ?`,
	)).WithArgs("p1", testTenant).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM pages WHERE id = ? AND tenant_id = ?`,
	)).WithArgs("p1", testTenant).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := r.Delete(context.Background(), "p1", testTenant); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	// A deleted page must not keep serving from the public cache.
	if hookPage != "p1" || hookTenant != testTenant {
		t.Fatal("delete did not fire the change hook")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
