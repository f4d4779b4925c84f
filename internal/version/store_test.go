// internal/version/store_test.go
//
// Unit-tests for the append-only version store using sqlmock.
//
// Run: go test ./internal/version -v

package version

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
)

const (
	testPage   = "11111111-1111-1111-1111-111111111111"
	testTenant = "22222222-2222-2222-2222-222222222222"
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

func versionRow(id string, number int, contentJSON, metaJSON []byte) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{
		"id", "page_id", "tenant_id", "version_number",
		"content_json", "meta_json", "created_at",
	})
	var meta any
	if metaJSON != nil {
		meta = metaJSON
	}
	return r.AddRow(id, testPage, testTenant, number, contentJSON, meta, time.Now())
}

func expectPageExists(mock sqlmock.Sqlmock, exists bool) {
	e := mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT 1 FROM pages WHERE id = ? AND tenant_id = ? LIMIT 1`,
	)).WithArgs(testPage, testTenant)
	if exists {
		e.WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	} else {
		e.WillReturnRows(sqlmock.NewRows([]string{"1"}))
	}
}

func TestAppendAssignsNextSequence(t *testing.T) {
	db, mock := newMock(t)
	s := NewStore(db)

	var hookPage, hookTenant string
	s.OnAppend(func(pageID, tenantID string) { hookPage, hookTenant = pageID, tenantID })

	mock.ExpectBegin()
	expectPageExists(mock, true)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COALESCE(MAX(version_number), 0) FROM page_versions WHERE page_id = ? FOR UPDATE`,
	)).WithArgs(testPage).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO page_versions (id, page_id, tenant_id, version_number, content_json, meta_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)).WithArgs(sqlmock.AnyArg(), testPage, testTenant, 3, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := s.Append(context.Background(), testPage, testTenant, []block.Block{block.New(block.TypeHero)})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if v.Number != 3 {
		t.Fatalf("expected sequence 3, got %d", v.Number)
	}
	if hookPage != testPage || hookTenant != testTenant {
		t.Fatalf("OnAppend hook not fired: %q %q", hookPage, hookTenant)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAppendTenantMismatch(t *testing.T) {
	db, mock := newMock(t)
	s := NewStore(db)

	mock.ExpectBegin()
	expectPageExists(mock, false)
	mock.ExpectRollback()

	_, err := s.Append(context.Background(), testPage, testTenant, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAppendSequenceConflict(t *testing.T) {
	db, mock := newMock(t)
	s := NewStore(db)

	mock.ExpectBegin()
	expectPageExists(mock, true)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COALESCE(MAX(version_number), 0) FROM page_versions WHERE page_id = ? FOR UPDATE`,
	)).WithArgs(testPage).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO page_versions`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate"})
	mock.ExpectRollback()

	_, err := s.Append(context.Background(), testPage, testTenant, nil)
	if !errors.Is(err, ErrSequenceConflict) {
		t.Fatalf("expected ErrSequenceConflict, got %v", err)
	}
}

func TestLatestDistinguishesEmptyFromMissing(t *testing.T) {
	// Page exists but has no versions.
	db2, mock2 := newMock(t)
	s2 := NewStore(db2)
	mock2.ExpectQuery(regexp.QuoteMeta(`FROM page_versions`)).
		WithArgs(testPage, testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock2.ExpectQuery(regexp.QuoteMeta(
		`SELECT 1 FROM pages WHERE id = ? AND tenant_id = ? LIMIT 1`,
	)).WithArgs(testPage, testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := s2.Latest(context.Background(), testPage, testTenant)
	if !errors.Is(err, ErrNoVersions) {
		t.Fatalf("expected ErrNoVersions, got %v", err)
	}

	// Page missing entirely.
	db3, mock3 := newMock(t)
	s3 := NewStore(db3)
	mock3.ExpectQuery(regexp.QuoteMeta(`FROM page_versions`)).
		WithArgs(testPage, testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock3.ExpectQuery(regexp.QuoteMeta(
		`SELECT 1 FROM pages WHERE id = ? AND tenant_id = ? LIMIT 1`,
	)).WithArgs(testPage, testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	_, err = s3.Latest(context.Background(), testPage, testTenant)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDecodesNewestFirst(t *testing.T) {
	db, mock := newMock(t)
	s := NewStore(db)

	content2 := []byte(`{"sections":[{"id":"b1","type":"hero","props":{"title":"Hi","subtitle":"","image":""}}]}`)
	content1 := []byte(`{"sections":[]}`)

	expectPageExists(mock, true)
	rows := sqlmock.NewRows([]string{
		"id", "page_id", "tenant_id", "version_number",
		"content_json", "meta_json", "created_at",
	}).
		AddRow("v2", testPage, testTenant, 2, content2, nil, time.Now()).
		AddRow("v1", testPage, testTenant, 1, content1, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM page_versions WHERE page_id = ? AND tenant_id = ? ORDER BY version_number DESC`,
	)).WithArgs(testPage, testTenant).WillReturnRows(rows)

	got, err := s.List(context.Background(), testPage, testTenant)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[0].Number != 2 || got[1].Number != 1 {
		t.Fatalf("unexpected order: %#v", got)
	}
	if len(got[0].Blocks) != 1 || got[0].Blocks[0].Type != block.TypeHero {
		t.Fatalf("content not decoded: %#v", got[0].Blocks)
	}
	if got[0].Blocks[0].Hero == nil || got[0].Blocks[0].Hero.Title != "Hi" {
		t.Fatalf("hero props not decoded: %#v", got[0].Blocks[0])
	}
	// Ordinary appends store meta_json as SQL NULL; the scan must survive
	// it and decode to no provenance.
	if got[0].Meta != nil || got[1].Meta != nil {
		t.Fatalf("NULL meta should decode to nil: %#v %#v", got[0].Meta, got[1].Meta)
	}
}

func TestRestoreCopiesForwardWithMeta(t *testing.T) {
	db, mock := newMock(t)
	s := NewStore(db)

	content := []byte(`{"sections":[{"id":"b1","type":"cta","props":{"title":"Go","buttonLabel":"Now","buttonLink":"#"}}]}`)

	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM page_versions WHERE id = ? AND page_id = ? AND tenant_id = ? LIMIT 1`,
	)).WithArgs("v2", testPage, testTenant).
		WillReturnRows(versionRow("v2", 2, content, nil))

	mock.ExpectBegin()
	expectPageExists(mock, true)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COALESCE(MAX(version_number), 0) FROM page_versions WHERE page_id = ? FOR UPDATE`,
	)).WithArgs(testPage).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO page_versions`)).
		WithArgs(sqlmock.AnyArg(), testPage, testTenant, 6, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := s.Restore(context.Background(), testPage, testTenant, "v2")
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if v.Number != 6 {
		t.Fatalf("expected new head 6, got %d", v.Number)
	}
	if v.Meta == nil || v.Meta.RestoredFrom != "v2" || v.Meta.RestoredAt.IsZero() {
		t.Fatalf("missing provenance meta: %#v", v.Meta)
	}
	if len(v.Blocks) != 1 || v.Blocks[0].CTA == nil || v.Blocks[0].CTA.Title != "Go" {
		t.Fatalf("blocks not copied forward: %#v", v.Blocks)
	}
}

func TestContentEnvelopeRoundTrip(t *testing.T) {
	blocks := []block.Block{block.New(block.TypeGallery)}
	raw, err := encodeContent(blocks)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var c content
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(c.Sections) != 1 || c.Sections[0].Type != block.TypeGallery {
		t.Fatalf("unexpected envelope: %s", raw)
	}

	// A nil list must still store an array, not null.
	raw, err = encodeContent(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if string(raw) != `{"sections":[]}` {
		t.Fatalf("nil list should encode as empty array: %s", raw)
	}
}
