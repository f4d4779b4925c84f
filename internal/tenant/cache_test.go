// internal/tenant/cache_test.go
//
// Unit-tests for the lazy tenant cache using sqlmock.
//
// Run: go test ./internal/tenant -v

package tenant

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func expectLoad(mock sqlmock.Sqlmock, domain string) {
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, slug, name, domain, suspended_at, deleted_at, created_at, updated_at FROM tenants WHERE domain = ? AND suspended_at IS NULL AND deleted_at IS NULL LIMIT 1`,
	)).WithArgs(domain).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "slug", "name", "domain", "suspended_at", "deleted_at", "created_at", "updated_at",
		}).AddRow("t1", "acme", "Acme", domain, nil, nil, time.Now(), time.Now()))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM globals WHERE tenant_id = ? AND status = 'published'`)).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value_json"}).
			AddRow("settings", []byte(`{"domain":"`+domain+`"}`)))
}

func TestGetLoadsOnceAndCaches(t *testing.T) {
	db, mock := newMock(t)
	c := New(db, IdleTTL, MaxEntries)

	expectLoad(mock, "acme.example")

	ten, err := c.Get("acme.example")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ten.Meta.Slug != "acme" {
		t.Fatalf("wrong tenant: %#v", ten.Meta)
	}
	if _, ok := ten.Globals["settings"]; !ok {
		t.Fatalf("globals not loaded: %#v", ten.Globals)
	}

	// Second hit must come from the map; no further SQL is expected.
	again, err := c.Get("acme.example")
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if again != ten {
		t.Fatal("expected the identical cached pointer")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestGetUnknownDomain(t *testing.T) {
	db, mock := newMock(t)
	c := New(db, IdleTTL, MaxEntries)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tenants WHERE domain = ?`)).
		WithArgs("ghost.example").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := c.Get("ghost.example")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	db, mock := newMock(t)
	c := New(db, IdleTTL, MaxEntries)

	expectLoad(mock, "acme.example")
	first, err := c.Get("acme.example")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	c.Invalidate("acme.example")

	expectLoad(mock, "acme.example")
	second, err := c.Get("acme.example")
	if err != nil {
		t.Fatalf("reload Get: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh load after Invalidate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
