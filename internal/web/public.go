// internal/web/public.go
//
// Public read API.
//
// Context
// -------
// The live sites fetch their content here.  The router resolves the
// tenant from the Host header once, in middleware, and hangs it on the
// request context; the page must be published, and the payload is the
// page row plus the block list of its latest version.  Rendered payloads
// sit in a process-wide LRU keyed by (tenant, slug), invalidated through
// the version-append and status-change hooks wired in cmd/web.
//
// Notes
// -----
//   - Drafts and unknown slugs are indistinguishable from the outside:
//     both answer 404.
//   - Oxford commas, two spaces after periods.
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/cache"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/metrics"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/post"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/requestinfo"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/routing"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/tenant"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
)

// publicPageCap bounds the rendered-page LRU.
const publicPageCap = 2048

// Public bundles the collaborators behind the read API.
type Public struct {
	tenants  *tenant.Cache
	pages    *page.Repository
	versions *version.Store
	posts    *post.Repository
	lru      *cache.LRU
}

// NewPublic wires the public handlers and their payload cache.
func NewPublic(tenants *tenant.Cache, pages *page.Repository, versions *version.Store, posts *post.Repository) *Public {
	return &Public{
		tenants:  tenants,
		pages:    pages,
		versions: versions,
		posts:    posts,
		lru:      cache.New(publicPageCap),
	}
}

// InvalidateTenantPages drops every cached payload of one tenant.  Wired
// to the version-append and status-change hooks; slug granularity is not
// worth resolving ids back to slugs on the hot hook path.
func (p *Public) InvalidateTenantPages(tenantID string) {
	prefix := tenantID + "/"
	p.lru.RemoveFunc(func(key any) bool {
		k, ok := key.(string)
		return ok && strings.HasPrefix(k, prefix)
	})
}

// Routes builds and returns the router mounted at "/api".
func (p *Public) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	r.Use(p.withTenant)

	r.Get("/pages/{slug}", p.handlePage)
	r.Get("/home", p.handleHome)
	r.Get("/posts", p.handlePostsFeed)
	r.Get("/globals", p.handleGlobals)
	return r
}

// withTenant resolves the Host header through the tenant cache and hangs
// the result on the request context, so handlers never re-run the lookup.
func (p *Public) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ten, err := p.tenants.Get(stripPort(r.Host))
		if err != nil {
			respondErr(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), ten)))
	})
}

// publicPage is the cached response payload.
type publicPage struct {
	Page     *page.Page    `json:"page"`
	Path     string        `json:"path"`
	Sections []block.Block `json:"sections"`
	Version  int           `json:"versionNumber"`
}

//
// Handlers
//

func (p *Public) handleHome(w http.ResponseWriter, r *http.Request) {
	p.servePage(w, r, "home")
}

func (p *Public) handlePage(w http.ResponseWriter, r *http.Request) {
	p.servePage(w, r, chi.URLParam(r, "slug"))
}

func (p *Public) servePage(w http.ResponseWriter, r *http.Request, slug string) {
	ten, _ := tenant.FromContext(r.Context())

	key := ten.Meta.ID + "/" + slug
	if v, ok := p.lru.Get(key); ok {
		metrics.PublicCacheHits.Inc()
		respond(w, http.StatusOK, v.(*publicPage))
		return
	}
	metrics.PublicCacheMisses.Inc()

	pg, err := p.pages.BySlug(r.Context(), slug, ten.Meta.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if !pg.Published() {
		respond(w, http.StatusNotFound, errorBody{Error: page.ErrNotFound.Error()})
		return
	}

	latest, err := p.versions.Latest(r.Context(), pg.ID, ten.Meta.ID)
	var sections []block.Block
	var number int
	switch {
	case err == nil:
		sections = latest.Blocks
		number = latest.Number
	case errors.Is(err, version.ErrNoVersions):
		sections = []block.Block{}
	default:
		respondErr(w, err)
		return
	}

	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		zap.S().Debugw("page served",
			"tenant", ten.Meta.ID, "slug", slug,
			"device", ri.UA.Device, "country", ri.Geo.CountryISO, "bot", ri.UA.IsBot)
	}

	payload := &publicPage{
		Page:     pg,
		Path:     routing.BuildPath("", pg.Slug),
		Sections: sections,
		Version:  number,
	}
	p.lru.Add(key, payload)
	respond(w, http.StatusOK, payload)
}

func (p *Public) handlePostsFeed(w http.ResponseWriter, r *http.Request) {
	ten, _ := tenant.FromContext(r.Context())
	posts, err := p.posts.ListPublished(r.Context(), ten.Meta.ID, queryLimit(r, post.DefaultFeedLimit))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, posts)
}

func (p *Public) handleGlobals(w http.ResponseWriter, r *http.Request) {
	ten, _ := tenant.FromContext(r.Context())
	respond(w, http.StatusOK, ten.Globals)
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
