// cmd/web/main.go
//
// CMS – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load YAML + env config and resolve Vault secret references.
//
//  4. Open the control-plane DB and log active-tenant count.
//
//  5. Build the tenant cache (lazy-loads each site on first hit).
//
//  6. Wire repositories, the version store, the revalidation client, and
//     the cache-invalidation hooks.
//
//  7. Mount /metrics, /api/admin (authoring), and /api (public reads),
//     wrapped in security headers and optional HTTPS enforcement.
//
//  8. Serve until SIGINT/SIGTERM, then drain for up to ten seconds.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/config"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/database"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/editor"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/logger"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/middleware"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/post"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/requestinfo"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/revalidate"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/server"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/tenant"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/version"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/web"
)

const serverEnvPath = "/usr/local/etc/ftiaxesitecms/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	sugar, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config (YAML + env + Vault) ────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		sugar.Fatalw("load config", "err", err)
	}

	//
	// ── 2.  Control-plane DB connect ───────────────────────────────────
	//
	sugar.Info("connecting to control-plane DB …")
	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		sugar.Fatalw("connect DB", "err", err)
	}
	defer db.Close()
	sugar.Info("control-plane DB online")

	// Log the active-tenant inventory as an early sanity check.
	if active, err := tenant.AllActive(db); err != nil {
		sugar.Warnw("tenant inventory", "err", err)
	} else {
		sugar.Infof("%d active tenant(s) found", len(active))
	}

	//
	// ── 3.  Optional GeoIP DB ──────────────────────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.CityDB); err != nil {
		sugar.Warnw("geoip disabled", "err", err)
	}

	// SIGHUP re-reads the config so a rotated secret or a swapped GeoIP
	// database can be picked up without a restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := config.Reload(ctx); err != nil {
				sugar.Warnw("config reload", "err", err)
				continue
			}
			if err := requestinfo.InitGeo(config.Get().GeoIP.CityDB); err != nil {
				sugar.Warnw("geoip reload", "err", err)
			}
			sugar.Info("config reloaded")
		}
	}()

	//
	// ── 4.  Domain wiring ──────────────────────────────────────────────
	//
	tenants := tenant.New(db, tenant.IdleTTL, tenant.MaxEntries)

	rev := revalidate.New(cfg.Revalidate.Secret, cfg.Revalidate.Timeout)
	pages := page.NewRepository(db, rev)
	versions := version.NewStore(db)
	posts := post.NewRepository(db)
	wizard := tenant.NewWizard(db, pages)

	public := web.NewPublic(tenants, pages, versions, posts)
	admin := web.NewAdmin(db, pages, versions, posts, wizard, tenants, editor.Options{
		Debounce:   cfg.Editor.DebounceWindow,
		SavedDecay: cfg.Editor.SavedDecay,
	})

	// New snapshots and status flips must drop stale public payloads.
	versions.OnAppend(func(_, tenantID string) { public.InvalidateTenantPages(tenantID) })
	pages.OnStatusChange(func(_, tenantID string) { public.InvalidateTenantPages(tenantID) })

	//
	// ── 5.  Router ─────────────────────────────────────────────────────
	//
	r := chi.NewRouter()

	origins := cfg.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"} // development default
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/api/admin", admin.Routes())
	r.Mount("/api", public.Routes())

	var handler http.Handler = middleware.Security(r)
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(tenants, handler)
	}

	//
	// ── 6.  Serve until signalled, then drain ──────────────────────────
	//
	srv := server.New(cfg.HTTP, handler)

	go func() {
		sugar.Infof("listening on %s", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("http server", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down …")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("shutdown", "err", err)
	}
	_ = zap.L().Sync()
}
