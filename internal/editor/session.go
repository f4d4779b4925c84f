// internal/editor/session.go
//
// Editor session reconciler.
//
// Context
// -------
// A Session is the mutable working copy of one page's block list during an
// editing session.  It bridges rapid local edits against the append-only
// version store:
//
//   1. Every mutation applies synchronously to the in-memory copy.
//   2. Each mutation (re)schedules a debounced flush; only the state after
//      the last edit of a burst is ever persisted.
//   3. A flush appends one full snapshot.  Failure surfaces through Err()
//      and reverts the status to idle; the working copy is never touched,
//      so the next edit retries implicitly.
//   4. A session opened on a "new page" placeholder has no page id yet;
//      the first non-empty flush creates the page (seeding version 1 with
//      the working copy) and the session rebinds to the persisted id.
//   5. Restore is immediate: it already persists durably, so it bypasses
//      the debounce, cancels any pending flush, and replaces the working
//      copy wholesale.
//
// The save status (idle → saving → saved → idle) is a UI affordance only;
// "saved" decays back to idle after a fixed display interval and must
// never be shown unless the append truly succeeded.
//
// Notes
// -----
//   - All methods are safe for one cooperative UI loop; the internal mutex
//     only guards against the timer goroutine racing a user edit.
//   - Oxford commas, two spaces after periods.
package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

// Status is the save indicator shown next to the page title.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
)

const (
	// DefaultDebounce is the quiet window after the last edit.
	DefaultDebounce = time.Second
	// DefaultSavedDecay is how long "saved" stays on screen.
	DefaultSavedDecay = 2 * time.Second
)

// ErrUnsaved is returned by operations that need a persisted page while
// the session is still a new-page placeholder.
var ErrUnsaved = errors.New("editor: page not persisted yet")

// VersionStore is the slice of the version store the session needs.
type VersionStore interface {
	Append(ctx context.Context, pageID, tenantID string, blocks []block.Block) (*version.Version, error)
	Latest(ctx context.Context, pageID, tenantID string) (*version.Version, error)
	Restore(ctx context.Context, pageID, tenantID, versionID string) (*version.Version, error)
}

// PageCreator creates the page row when a new-page session first flushes.
type PageCreator interface {
	Create(ctx context.Context, tenantID string, in page.CreateInput, initial []block.Block) (*page.Page, error)
}

// Options tunes the session's temporal behavior.  Zero values select the
// defaults; a nil Scheduler selects TimerScheduler.
type Options struct {
	Debounce   time.Duration
	SavedDecay time.Duration
	Scheduler  Scheduler
}

func (o *Options) fill() {
	if o.Debounce == 0 {
		o.Debounce = DefaultDebounce
	}
	if o.SavedDecay == 0 {
		o.SavedDecay = DefaultSavedDecay
	}
	if o.Scheduler == nil {
		o.Scheduler = TimerScheduler{}
	}
}

// Session is one editor's working copy for one page.
type Session struct {
	store VersionStore
	pages PageCreator
	opts  Options

	// ctx bounds background flushes fired by the scheduler.
	ctx context.Context

	mu       sync.Mutex
	tenantID string
	pageID   string // empty while the page is an unsaved placeholder
	title    string // used by the one-time create
	slug     string
	working  []block.Block
	status   Status
	lastErr  error
	pending  Handle // at most one scheduled flush
	decay    Handle // pending saved→idle transition
}

// Open hydrates a session from the page's latest version (empty when the
// page has never been saved).
func Open(ctx context.Context, store VersionStore, pages PageCreator, p *page.Page, opts Options) (*Session, error) {
	opts.fill()
	s := &Session{
		store:    store,
		pages:    pages,
		opts:     opts,
		ctx:      ctx,
		tenantID: p.TenantID,
		pageID:   p.ID,
		title:    p.Title,
		slug:     p.Slug,
		status:   StatusIdle,
	}

	latest, err := store.Latest(ctx, p.ID, p.TenantID)
	switch {
	case err == nil:
		s.working = block.CloneList(latest.Blocks)
	case errors.Is(err, version.ErrNoVersions):
		s.working = nil
	default:
		return nil, err
	}
	return s, nil
}

// NewDraft opens a session for a page that does not exist yet.  The first
// non-empty flush creates it.
func NewDraft(ctx context.Context, store VersionStore, pages PageCreator, tenantID, title, slug string, opts Options) *Session {
	opts.fill()
	return &Session{
		store:    store,
		pages:    pages,
		opts:     opts,
		ctx:      ctx,
		tenantID: tenantID,
		title:    title,
		slug:     slug,
		status:   StatusIdle,
	}
}

//
// Accessors
//

// PageID returns the bound page id, empty while unsaved.
func (s *Session) PageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageID
}

// SaveStatus returns the current indicator state.
func (s *Session) SaveStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the error of the most recent failed flush, cleared by the
// next successful one.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Blocks returns a deep copy of the working copy in order.
func (s *Session) Blocks() []block.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return block.CloneList(s.working)
}

//
// Mutations (each one reschedules the debounced flush)
//

// AddBlock inserts a fresh block of the given type with default props,
// after afterID when given, else at the end.  Returns the new block.
func (s *Session) AddBlock(t block.Type, afterID string) block.Block {
	b := block.New(t)

	s.mu.Lock()
	if afterID != "" {
		if i := s.indexOf(afterID); i >= 0 {
			s.working = append(s.working[:i+1], append([]block.Block{b}, s.working[i+1:]...)...)
		} else {
			s.working = append(s.working, b)
		}
	} else {
		s.working = append(s.working, b)
	}
	s.mu.Unlock()

	s.scheduleFlush()
	return b
}

// RemoveBlock deletes a block by id.  Unknown ids are a no-op.
func (s *Session) RemoveBlock(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.working = append(s.working[:i], s.working[i+1:]...)
	s.mu.Unlock()

	s.scheduleFlush()
	return true
}

// MoveBlock reorders a block to index newPos (clamped).  The block id is
// stable across moves.
func (s *Session) MoveBlock(id string, newPos int) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	b := s.working[i]
	s.working = append(s.working[:i], s.working[i+1:]...)
	if newPos < 0 {
		newPos = 0
	}
	if newPos > len(s.working) {
		newPos = len(s.working)
	}
	s.working = append(s.working[:newPos], append([]block.Block{b}, s.working[newPos:]...)...)
	s.mu.Unlock()

	s.scheduleFlush()
	return true
}

// UpdateBlock applies an in-place edit to one block's properties.  The
// callback must not retain the pointer.
func (s *Session) UpdateBlock(id string, apply func(*block.Block)) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	apply(&s.working[i])
	s.mu.Unlock()

	s.scheduleFlush()
	return true
}

//
// Persistence
//

// Flush persists the working copy immediately, bypassing the debounce.
// Used by explicit "save now" actions and by tests.
func (s *Session) Flush(ctx context.Context) error {
	s.cancelPending()
	return s.flush(ctx)
}

// RestoreVersion replaces the working copy with a historical snapshot.
// The restore itself durably appends a new head, so there is nothing left
// to flush; any pending debounced flush is cancelled.
func (s *Session) RestoreVersion(ctx context.Context, versionID string) error {
	s.mu.Lock()
	pageID, tenantID := s.pageID, s.tenantID
	s.mu.Unlock()
	if pageID == "" {
		return ErrUnsaved
	}

	s.cancelPending()

	v, err := s.store.Restore(ctx, pageID, tenantID, versionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.working = block.CloneList(v.Blocks)
	s.lastErr = nil
	s.mu.Unlock()

	s.markSaved()
	return nil
}

// Close cancels all pending timers.  The working copy is discarded; call
// Flush first to keep it.
func (s *Session) Close() {
	s.cancelPending()
	s.mu.Lock()
	if s.decay != nil {
		s.decay.Cancel()
		s.decay = nil
	}
	s.status = StatusIdle
	s.mu.Unlock()
}

//
// Internals
//

// indexOf requires s.mu held.
func (s *Session) indexOf(id string) int {
	for i := range s.working {
		if s.working[i].ID == id {
			return i
		}
	}
	return -1
}

// scheduleFlush cancels any pending flush and arms a new one.  The old
// timer is discarded, not superseded: there is never more than one
// in-flight scheduled flush per session.
//
// Cancel can report false when the old timer has already fired and its
// callback is blocked on s.mu behind this edit.  That callback is stale:
// it must neither clear the freshly armed handle nor flush, so the
// callback acts only while s.pending still points at its own handle.
func (s *Session) scheduleFlush() {
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Cancel()
	}
	var h Handle
	h = s.opts.Scheduler.Schedule(s.opts.Debounce, func() {
		s.mu.Lock()
		if s.pending != h {
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()
		if err := s.flush(s.ctx); err != nil {
			zap.S().Warnw("autosave flush failed", "page", s.PageID(), "err", err)
		}
	})
	s.pending = h
	s.mu.Unlock()
}

func (s *Session) cancelPending() {
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
	s.mu.Unlock()
}

// flush persists the current working copy as one snapshot.  On failure
// the working copy is untouched and the status reverts to idle.
func (s *Session) flush(ctx context.Context) error {
	s.mu.Lock()
	blocks := block.CloneList(s.working)
	pageID, tenantID := s.pageID, s.tenantID
	title, slug := s.title, s.slug
	s.status = StatusSaving
	s.mu.Unlock()

	// One-time transition from "unsaved new" to "persisted": creating the
	// page seeds version 1 with the working copy, so no separate append
	// is needed on this pass.
	if pageID == "" {
		if len(blocks) == 0 {
			s.mu.Lock()
			s.status = StatusIdle
			s.mu.Unlock()
			return nil
		}
		p, err := s.pages.Create(ctx, tenantID, page.CreateInput{Title: title, Slug: slug}, blocks)
		if err != nil {
			s.fail(err)
			return err
		}
		s.mu.Lock()
		s.pageID = p.ID
		s.slug = p.Slug
		s.lastErr = nil
		s.mu.Unlock()
		s.markSaved()
		return nil
	}

	if _, err := s.store.Append(ctx, pageID, tenantID, blocks); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	s.markSaved()
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.status = StatusIdle
	s.lastErr = err
	s.mu.Unlock()
}

// markSaved flips to saved and arms the decay back to idle.
func (s *Session) markSaved() {
	s.mu.Lock()
	s.status = StatusSaved
	if s.decay != nil {
		s.decay.Cancel()
	}
	s.decay = s.opts.Scheduler.Schedule(s.opts.SavedDecay, func() {
		s.mu.Lock()
		if s.status == StatusSaved {
			s.status = StatusIdle
		}
		s.decay = nil
		s.mu.Unlock()
	})
	s.mu.Unlock()
}
