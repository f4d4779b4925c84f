// internal/web/admin.go
//
// Authoring API.
//
// Context
// -------
// The admin surface is what the dashboard frontend talks to.  It is
// tenant-explicit: every route carries the tenant id in the path, and the
// handlers pass it straight into the repositories, which enforce the
// isolation in SQL.  Publish resolves the tenant's live domain from the
// `settings` global before firing the revalidation webhook.
//
// Routes
// ------
//
//	POST   /tenants                                        provision (wizard)
//	GET    /tenants/{tenantID}                             fetch (id or slug)
//	GET    /tenants/{tenantID}/pages                       list
//	POST   /tenants/{tenantID}/pages                       create
//	GET    /tenants/{tenantID}/pages/{pageID}              fetch
//	PUT    /tenants/{tenantID}/pages/{pageID}              rename
//	DELETE /tenants/{tenantID}/pages/{pageID}              delete
//	POST   /tenants/{tenantID}/pages/{pageID}/clone        duplicate
//	POST   /tenants/{tenantID}/pages/{pageID}/publish      go live
//	POST   /tenants/{tenantID}/pages/{pageID}/unpublish    back to draft
//	GET    /tenants/{tenantID}/pages/{pageID}/versions     history
//	POST   /tenants/{tenantID}/pages/{pageID}/versions     save snapshot
//	POST   …/versions/{versionID}/restore                  roll back
//	(plus posts, globals, and the editor-session routes in editor.go)
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/editor"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/post"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/settings"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/tenant"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

// Admin bundles the collaborators behind the authoring API.
type Admin struct {
	db       *sqlx.DB
	pages    *page.Repository
	versions *version.Store
	posts    *post.Repository
	wizard   *tenant.Wizard
	tenants  *tenant.Cache
	sessions *sessionManager
}

// NewAdmin wires the authoring handlers.  editorOpts tunes the session
// debounce; zero values select the editor package defaults.
func NewAdmin(db *sqlx.DB, pages *page.Repository, versions *version.Store, posts *post.Repository, wizard *tenant.Wizard, tenants *tenant.Cache, editorOpts editor.Options) *Admin {
	return &Admin{
		db:       db,
		pages:    pages,
		versions: versions,
		posts:    posts,
		wizard:   wizard,
		tenants:  tenants,
		sessions: newSessionManager(versions, pages, editorOpts),
	}
}

// Routes builds and returns the router mounted at "/api/admin".
func (a *Admin) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/tenants", a.handleCreateTenant)

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/", a.handleGetTenant)

		r.Get("/pages", a.handleListPages)
		r.Post("/pages", a.handleCreatePage)

		r.Route("/pages/{pageID}", func(r chi.Router) {
			r.Get("/", a.handleGetPage)
			r.Put("/", a.handleRenamePage)
			r.Delete("/", a.handleDeletePage)
			r.Post("/clone", a.handleClonePage)
			r.Post("/publish", a.handlePublishPage)
			r.Post("/unpublish", a.handleUnpublishPage)

			r.Get("/versions", a.handleListVersions)
			r.Post("/versions", a.handleAppendVersion)
			r.Post("/versions/{versionID}/restore", a.handleRestoreVersion)

			a.mountEditor(r)
		})

		r.Get("/posts", a.handleListPosts)
		r.Post("/posts", a.handleSavePost)
		r.Route("/posts/{postID}", func(r chi.Router) {
			r.Get("/", a.handleGetPost)
			r.Put("/", a.handleSavePost)
			r.Delete("/", a.handleDeletePost)
			r.Post("/archive", a.handleArchivePost)
		})

		r.Get("/globals/{key}", a.handleGetGlobal)
		r.Put("/globals/{key}", a.handlePutGlobal)
	})

	return r
}

//
// Tenants
//

// handleGetTenant accepts either the tenant id or its slug: the dashboard
// addresses sites by slug in its own URLs.
func (a *Admin) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "tenantID")
	rec, err := tenant.ByID(r.Context(), a.db, key)
	if errors.Is(err, tenant.ErrNotFound) {
		rec, err = tenant.BySlug(r.Context(), a.db, key)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (a *Admin) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var in tenant.WizardInput
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	rec, err := a.wizard.Create(r.Context(), in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, rec)
}

//
// Pages
//

func (a *Admin) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := a.pages.List(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, pages)
}

func (a *Admin) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
		Slug  string `json:"slug"`
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	p, err := a.pages.Create(r.Context(), chi.URLParam(r, "tenantID"),
		page.CreateInput{Title: in.Title, Slug: in.Slug}, nil)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, p)
}

func (a *Admin) handleGetPage(w http.ResponseWriter, r *http.Request) {
	p, err := a.pages.ByID(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (a *Admin) handleRenamePage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
		Slug  string `json:"slug"`
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	err := a.pages.Rename(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"), in.Title, in.Slug)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (a *Admin) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	tenantID, pageID := chi.URLParam(r, "tenantID"), chi.URLParam(r, "pageID")
	a.sessions.drop(tenantID, pageID)
	if err := a.pages.Delete(r.Context(), pageID, tenantID); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (a *Admin) handleClonePage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title string `json:"title"`
		Slug  string `json:"slug"`
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	p, err := a.pages.Clone(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"), in.Slug, in.Title)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, p)
}

func (a *Admin) handlePublishPage(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	// The webhook target lives in the tenant's `settings` global; an
	// empty domain publishes without notifying anyone.
	site, err := settings.Site(r.Context(), a.db, tenantID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := a.pages.Publish(r.Context(), chi.URLParam(r, "pageID"), tenantID, site.Domain); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (a *Admin) handleUnpublishPage(w http.ResponseWriter, r *http.Request) {
	err := a.pages.SetDraft(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

//
// Versions
//

func (a *Admin) handleListVersions(w http.ResponseWriter, r *http.Request) {
	vs, err := a.versions.List(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, vs)
}

func (a *Admin) handleAppendVersion(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Sections []block.Block `json:"sections"`
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	v, err := a.versions.Append(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"), in.Sections)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, v)
}

func (a *Admin) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	v, err := a.versions.Restore(r.Context(),
		chi.URLParam(r, "pageID"), chi.URLParam(r, "tenantID"), chi.URLParam(r, "versionID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, v)
}

//
// Posts
//

func (a *Admin) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.posts.List(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, posts)
}

func (a *Admin) handleGetPost(w http.ResponseWriter, r *http.Request) {
	p, err := a.posts.ByID(r.Context(), chi.URLParam(r, "postID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

// handleSavePost serves both POST (create) and PUT (update); the upsert
// semantics live in the repository.
func (a *Admin) handleSavePost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title      string          `json:"title"`
		Slug       string          `json:"slug"`
		Excerpt    string          `json:"excerpt"`
		Content    json.RawMessage `json:"content"`
		CoverImage string          `json:"coverImage"`
		Status     post.Status     `json:"status"`
	}
	if err := decode(r, &in); err != nil {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	p, err := a.posts.Save(r.Context(), chi.URLParam(r, "postID"), chi.URLParam(r, "tenantID"),
		post.SaveInput{
			Title:      in.Title,
			Slug:       in.Slug,
			Excerpt:    in.Excerpt,
			Content:    in.Content,
			CoverImage: in.CoverImage,
			Status:     in.Status,
		})
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (a *Admin) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	err := a.posts.Delete(r.Context(), chi.URLParam(r, "postID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (a *Admin) handleArchivePost(w http.ResponseWriter, r *http.Request) {
	err := a.posts.Archive(r.Context(), chi.URLParam(r, "postID"), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

//
// Globals
//

func (a *Admin) handleGetGlobal(w http.ResponseWriter, r *http.Request) {
	g, err := settings.Get(r.Context(), a.db, chi.URLParam(r, "tenantID"), chi.URLParam(r, "key"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, g)
}

func (a *Admin) handlePutGlobal(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var in struct {
		Value  json.RawMessage `json:"value"`
		Status string          `json:"status"`
	}
	if err := decode(r, &in); err != nil || len(in.Value) == 0 {
		respond(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	g := settings.Global{
		TenantID: tenantID,
		Key:      chi.URLParam(r, "key"),
		Value:    in.Value,
		Status:   in.Status,
	}
	if err := settings.Upsert(r.Context(), a.db, g); err != nil {
		respondErr(w, err)
		return
	}

	// Cached tenants carry a snapshot of the globals, so force a reload.
	if rec, err := tenant.ByID(r.Context(), a.db, tenantID); err == nil {
		a.tenants.Invalidate(rec.Domain)
	}
	respond(w, http.StatusNoContent, nil)
}

// queryLimit parses a positive ?limit= value, falling back to def.
func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
