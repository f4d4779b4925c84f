// internal/web/editor.go
//
// Editor-session endpoints.
//
// Context
// -------
// The visual editor does not write a version per keystroke.  Each open
// page gets one server-side session holding the working copy; block
// mutations land in memory and the session's debounce timer folds a burst
// of edits into a single version append once the editor goes quiet.  The
// dashboard polls GET /editor for the save indicator.
//
// Sessions are keyed by (tenant, page) and bound to the process
// lifetime, not the request: a flush fired after the HTTP response must
// still complete.  Deleting the page drops its session.
//
// Notes
// -----
//   - One session per page; concurrent editors share it.  Per-user
//     working copies would need session ids, which the dashboard does
//     not send yet.
//   - Oxford commas, two spaces after periods.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/editor"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

//
// Session manager
//

type sessionManager struct {
	store *version.Store
	pages *page.Repository
	opts  editor.Options

	mu   sync.Mutex
	open map[string]*editor.Session // tenantID + "/" + pageID
}

func newSessionManager(store *version.Store, pages *page.Repository, opts editor.Options) *sessionManager {
	return &sessionManager{
		store: store,
		pages: pages,
		opts:  opts,
		open:  make(map[string]*editor.Session),
	}
}

// get returns the open session for the page, or nil.
func (m *sessionManager) get(tenantID, pageID string) *editor.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open[tenantID+"/"+pageID]
}

// openFor returns the existing session or hydrates a new one from the
// page's latest version.
func (m *sessionManager) openFor(ctx context.Context, tenantID, pageID string) (*editor.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tenantID + "/" + pageID
	if s, ok := m.open[key]; ok {
		return s, nil
	}

	p, err := m.pages.ByID(ctx, pageID, tenantID)
	if err != nil {
		return nil, err
	}
	// Background context: debounced flushes outlive the opening request.
	s, err := editor.Open(context.Background(), m.store, m.pages, p, m.opts)
	if err != nil {
		return nil, err
	}
	m.open[key] = s
	return s, nil
}

// drop closes and forgets the session, flushing nothing.
func (m *sessionManager) drop(tenantID, pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tenantID + "/" + pageID
	if s, ok := m.open[key]; ok {
		s.Close()
		delete(m.open, key)
	}
}

//
// Routes
//

// mountEditor attaches the session routes under /pages/{pageID}.
func (a *Admin) mountEditor(r chi.Router) {
	r.Route("/editor", func(r chi.Router) {
		r.Post("/open", a.handleEditorOpen)
		r.Get("/", a.handleEditorState)
		r.Delete("/", a.handleEditorClose)
		r.Post("/flush", a.handleEditorFlush)
		r.Post("/restore", a.handleEditorRestore)

		r.Post("/blocks", a.handleEditorAddBlock)
		r.Put("/blocks/{blockID}", a.handleEditorUpdateBlock)
		r.Delete("/blocks/{blockID}", a.handleEditorRemoveBlock)
		r.Post("/blocks/{blockID}/move", a.handleEditorMoveBlock)
	})
}

// editorState is the polling payload for the save indicator.
type editorState struct {
	PageID     string        `json:"pageId"`
	SaveStatus editor.Status `json:"saveStatus"`
	Error      string        `json:"error,omitempty"`
	Sections   []block.Block `json:"sections"`
}

func stateOf(s *editor.Session) editorState {
	st := editorState{
		PageID:     s.PageID(),
		SaveStatus: s.SaveStatus(),
		Sections:   s.Blocks(),
	}
	if err := s.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

//
// Handlers
//

func (a *Admin) handleEditorOpen(w http.ResponseWriter, r *http.Request) {
	s, err := a.sessions.openFor(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "pageID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, stateOf(s))
}

// requireSession fetches the open session or writes a 409.
func (a *Admin) requireSession(w http.ResponseWriter, r *http.Request) *editor.Session {
	s := a.sessions.get(chi.URLParam(r, "tenantID"), chi.URLParam(r, "pageID"))
	if s == nil {
		respond(w, http.StatusConflict, errorBody{Error: "editor session not open"})
	}
	return s
}

func (a *Admin) handleEditorState(w http.ResponseWriter, r *http.Request) {
	if s := a.requireSession(w, r); s != nil {
		respond(w, http.StatusOK, stateOf(s))
	}
}

func (a *Admin) handleEditorClose(w http.ResponseWriter, r *http.Request) {
	a.sessions.drop(chi.URLParam(r, "tenantID"), chi.URLParam(r, "pageID"))
	respond(w, http.StatusNoContent, nil)
}

func (a *Admin) handleEditorFlush(w http.ResponseWriter, r *http.Request) {
	s := a.requireSession(w, r)
	if s == nil {
		return
	}
	if err := s.Flush(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, stateOf(s))
}

func (a *Admin) handleEditorRestore(w http.ResponseWriter, r *http.Request) {
	s := a.requireSession(w, r)
	if s == nil {
		return
	}
	var in struct {
		VersionID string `json:"versionId"`
	}
	if err := decode(r, &in); err != nil || in.VersionID == "" {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.RestoreVersion(r.Context(), in.VersionID); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, stateOf(s))
}

func (a *Admin) handleEditorAddBlock(w http.ResponseWriter, r *http.Request) {
	s := a.requireSession(w, r)
	if s == nil {
		return
	}
	var in struct {
		Type  block.Type `json:"type"`
		After string     `json:"after"` // block id, empty appends at the end
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if !block.Known(in.Type) {
		respond(w, http.StatusUnprocessableEntity, errorBody{Error: "unknown block type"})
		return
	}
	b := s.AddBlock(in.Type, in.After)
	respond(w, http.StatusCreated, b)
}

func (a *Admin) handleEditorUpdateBlock(w http.ResponseWriter, r *http.Request) {
	s := a.requireSession(w, r)
	if s == nil {
		return
	}
	var in block.Block
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	ok := s.UpdateBlock(chi.URLParam(r, "blockID"), func(b *block.Block) {
		id := b.ID
		*b = in
		b.ID = id // the path, not the payload, names the block
	})
	if !ok {
		respond(w, http.StatusNotFound, errorBody{Error: "block not found"})
		return
	}
	respond(w, http.StatusOK, stateOf(s))
}

func (a *Admin) handleEditorRemoveBlock(w http.ResponseWriter, r *http.Request) {
	s := a.requireSession(w, r)
	if s == nil {
		return
	}
	if !s.RemoveBlock(chi.URLParam(r, "blockID")) {
		respond(w, http.StatusNotFound, errorBody{Error: "block not found"})
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (a *Admin) handleEditorMoveBlock(w http.ResponseWriter, r *http.Request) {
	s := a.requireSession(w, r)
	if s == nil {
		return
	}
	var in struct {
		Position int `json:"position"`
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if !s.MoveBlock(chi.URLParam(r, "blockID"), in.Position) {
		respond(w, http.StatusNotFound, errorBody{Error: "block not found"})
		return
	}
	respond(w, http.StatusOK, stateOf(s))
}
