// internal/editor/session_test.go
//
// Unit-tests for the debounced editor session.  A manual scheduler stands
// in for real timers so the tests control time explicitly.
//
// Run: go test ./internal/editor -v

package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

const (
	testPage   = "p1"
	testTenant = "t1"
)

//
// Manual scheduler
//

type manualTask struct {
	mu        sync.Mutex
	d         time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func (t *manualTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// detach marks the task fired and hands back its callback so a test can
// run it later, the way a real timer goroutine would after losing the
// race to an edit holding the session lock.
func (t *manualTask) detach() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.fired {
		return func() {}
	}
	t.fired = true
	return t.fn
}

func (t *manualTask) fire() {
	t.mu.Lock()
	if t.cancelled || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

func (m *manualScheduler) Schedule(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{d: d, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// fireLast runs the most recently armed live task.
func (m *manualScheduler) fireLast(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	var last *manualTask
	for _, task := range m.tasks {
		task.mu.Lock()
		live := !task.cancelled && !task.fired
		task.mu.Unlock()
		if live {
			last = task
		}
	}
	m.mu.Unlock()
	if last == nil {
		t.Fatal("no live scheduled task")
	}
	last.fire()
}

func (m *manualScheduler) liveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, task := range m.tasks {
		task.mu.Lock()
		if !task.cancelled && !task.fired {
			n++
		}
		task.mu.Unlock()
	}
	return n
}

//
// Fake collaborators
//

type appendCall struct {
	pageID string
	blocks []block.Block
}

type fakeStore struct {
	mu        sync.Mutex
	appends   []appendCall
	appendErr error
	latest    *version.Version
	latestErr error
	restored  *version.Version
}

func (f *fakeStore) Append(_ context.Context, pageID, tenantID string, blocks []block.Block) (*version.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appends = append(f.appends, appendCall{pageID: pageID, blocks: block.CloneList(blocks)})
	return &version.Version{ID: "v", PageID: pageID, TenantID: tenantID, Number: len(f.appends), Blocks: blocks}, nil
}

func (f *fakeStore) Latest(context.Context, string, string) (*version.Version, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeStore) Restore(_ context.Context, pageID, tenantID, versionID string) (*version.Version, error) {
	if f.restored == nil {
		return nil, version.ErrNotFound
	}
	return f.restored, nil
}

type fakePages struct {
	created []page.CreateInput
	blocks  []block.Block
}

func (f *fakePages) Create(_ context.Context, tenantID string, in page.CreateInput, initial []block.Block) (*page.Page, error) {
	f.created = append(f.created, in)
	f.blocks = block.CloneList(initial)
	return &page.Page{ID: "new-page", TenantID: tenantID, Slug: in.Slug, Title: in.Title, Status: page.StatusDraft}, nil
}

func openSession(t *testing.T, store *fakeStore) (*Session, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	p := &page.Page{ID: testPage, TenantID: testTenant, Slug: "home", Title: "Home"}
	s, err := Open(context.Background(), store, &fakePages{}, p, Options{Scheduler: sched})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, sched
}

//
// Tests
//

func TestEditBurstCoalescesIntoOneSnapshot(t *testing.T) {
	store := &fakeStore{latestErr: version.ErrNoVersions}
	s, sched := openSession(t, store)

	hero := s.AddBlock(block.TypeHero, "")
	cta := s.AddBlock(block.TypeCTA, "")
	s.UpdateBlock(hero.ID, func(b *block.Block) { b.Hero.Title = "Final Title" })
	s.MoveBlock(cta.ID, 0)

	// Four edits, but only the last debounce timer is still live.
	if n := sched.liveCount(); n != 1 {
		t.Fatalf("expected exactly one live flush timer, got %d", n)
	}
	if len(store.appends) != 0 {
		t.Fatalf("nothing should persist before the quiet window: %d", len(store.appends))
	}

	sched.fireLast(t)

	if len(store.appends) != 1 {
		t.Fatalf("burst must coalesce into one append, got %d", len(store.appends))
	}
	got := store.appends[0].blocks
	if len(got) != 2 || got[0].ID != cta.ID || got[1].ID != hero.ID {
		t.Fatalf("snapshot order wrong: %#v", got)
	}
	if got[1].Hero.Title != "Final Title" {
		t.Fatalf("snapshot missed the final edit: %#v", got[1].Hero)
	}
	if st := s.SaveStatus(); st != StatusSaved {
		t.Fatalf("expected saved, got %q", st)
	}
}

func TestStaleTimerCannotDoubleFlush(t *testing.T) {
	store := &fakeStore{latestErr: version.ErrNoVersions}
	s, sched := openSession(t, store)

	s.AddBlock(block.TypeHero, "")

	// The debounce timer fires, but its callback has not yet reached the
	// session lock when the next edit arrives.  Cancel on the fired timer
	// reports false, so the edit cannot stop it.
	sched.mu.Lock()
	stale := sched.tasks[0].detach()
	sched.mu.Unlock()

	s.AddBlock(block.TypeCTA, "")

	// The late callback finally runs.  It must recognize it was superseded:
	// no flush, and the freshly armed timer stays tracked.
	stale()

	if len(store.appends) != 0 {
		t.Fatalf("stale callback must not flush, got %d appends", len(store.appends))
	}
	if n := sched.liveCount(); n != 1 {
		t.Fatalf("expected exactly one live flush timer, got %d", n)
	}

	// A further edit supersedes the tracked timer instead of stacking a
	// second live one next to it.
	s.AddBlock(block.TypeGallery, "")
	if n := sched.liveCount(); n != 1 {
		t.Fatalf("superseded timer left live, got %d", n)
	}

	sched.fireLast(t)
	if len(store.appends) != 1 {
		t.Fatalf("burst must persist exactly once, got %d", len(store.appends))
	}
}

func TestSavedDecaysToIdle(t *testing.T) {
	store := &fakeStore{latestErr: version.ErrNoVersions}
	s, sched := openSession(t, store)

	s.AddBlock(block.TypeHero, "")
	sched.fireLast(t) // debounced flush
	if st := s.SaveStatus(); st != StatusSaved {
		t.Fatalf("expected saved, got %q", st)
	}

	sched.fireLast(t) // decay timer
	if st := s.SaveStatus(); st != StatusIdle {
		t.Fatalf("expected idle after decay, got %q", st)
	}
}

func TestFlushFailureKeepsWorkingCopy(t *testing.T) {
	store := &fakeStore{latestErr: version.ErrNoVersions, appendErr: errors.New("db down")}
	s, _ := openSession(t, store)

	s.AddBlock(block.TypeGallery, "")
	if err := s.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	if st := s.SaveStatus(); st != StatusIdle {
		t.Fatalf("failed flush must revert to idle, got %q", st)
	}
	if s.Err() == nil {
		t.Fatal("expected sticky last error")
	}
	if got := s.Blocks(); len(got) != 1 || got[0].Type != block.TypeGallery {
		t.Fatalf("working copy must survive the failure: %#v", got)
	}

	// Recovery: the next successful flush clears the error.
	store.appendErr = nil
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("recovery flush: %v", err)
	}
	if s.Err() != nil {
		t.Fatalf("error should clear on success, got %v", s.Err())
	}
}

func TestNewDraftCreatesPageOnFirstFlush(t *testing.T) {
	store := &fakeStore{}
	pages := &fakePages{}
	sched := &manualScheduler{}
	s := NewDraft(context.Background(), store, pages, testTenant, "Landing", "landing", Options{Scheduler: sched})

	if id := s.PageID(); id != "" {
		t.Fatalf("placeholder must have no page id, got %q", id)
	}
	if err := s.RestoreVersion(context.Background(), "v1"); !errors.Is(err, ErrUnsaved) {
		t.Fatalf("restore before persistence must fail with ErrUnsaved, got %v", err)
	}

	// An empty flush is a no-op: no page row for an empty composition.
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if len(pages.created) != 0 {
		t.Fatalf("empty draft must not create a page")
	}

	s.AddBlock(block.TypeTextImage, "")
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("first real flush: %v", err)
	}
	if len(pages.created) != 1 || pages.created[0].Slug != "landing" {
		t.Fatalf("page not created: %#v", pages.created)
	}
	if len(pages.blocks) != 1 {
		t.Fatalf("create must seed the working copy: %#v", pages.blocks)
	}
	if id := s.PageID(); id != "new-page" {
		t.Fatalf("session not rebound to the new page, got %q", id)
	}

	// Later flushes append; the create path is one-time.
	s.AddBlock(block.TypeCTA, "")
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if len(pages.created) != 1 {
		t.Fatalf("create ran twice")
	}
	if len(store.appends) != 1 || store.appends[0].pageID != "new-page" {
		t.Fatalf("append not bound to the created page: %#v", store.appends)
	}
}

func TestRestoreReplacesWorkingCopyAndCancelsPending(t *testing.T) {
	restoredBlock := block.New(block.TypeHero)
	restoredBlock.Hero.Title = "Old Glory"
	store := &fakeStore{
		latestErr: version.ErrNoVersions,
		restored:  &version.Version{ID: "v9", Number: 9, Blocks: []block.Block{restoredBlock}},
	}
	s, sched := openSession(t, store)

	s.AddBlock(block.TypeGallery, "") // arms a debounce timer

	if err := s.RestoreVersion(context.Background(), "v3"); err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
	if n := sched.liveCount(); n != 1 { // only the decay timer remains
		t.Fatalf("pending flush must be cancelled, live=%d", n)
	}
	got := s.Blocks()
	if len(got) != 1 || got[0].Hero == nil || got[0].Hero.Title != "Old Glory" {
		t.Fatalf("working copy not replaced: %#v", got)
	}
	if len(store.appends) != 0 {
		t.Fatalf("restore itself appends inside the store, the session must not double-append")
	}
	if st := s.SaveStatus(); st != StatusSaved {
		t.Fatalf("expected saved after restore, got %q", st)
	}
}

func TestOpenHydratesFromLatest(t *testing.T) {
	existing := block.New(block.TypePostsFeed)
	store := &fakeStore{latest: &version.Version{ID: "v5", Number: 5, Blocks: []block.Block{existing}}}
	s, _ := openSession(t, store)

	got := s.Blocks()
	if len(got) != 1 || got[0].ID != existing.ID {
		t.Fatalf("session not hydrated: %#v", got)
	}

	// The returned slice is a copy; mutating it must not touch the session.
	got[0].PostsFeed.Limit = 99
	if s.Blocks()[0].PostsFeed.Limit == 99 {
		t.Fatal("Blocks must return a deep copy")
	}
}
