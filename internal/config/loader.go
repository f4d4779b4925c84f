// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file — `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `CMS_`, where `__` maps to “.”
     (e.g., `CMS_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Secrets
-------
Any string field of the form `vault:<mount/path>#<key>` is resolved through
the Vault client after unmarshalling; the short form `vault:<key>` reads
from the default CMS secret (vault.DefaultSecretPath).  The client is
constructed lazily, so deployments without Vault simply never dial it.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/vault"
)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves CMS_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("CMS_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load(ctx context.Context) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: CMS_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("CMS_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, &cfg); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault secrets ────────────────────────────────*/

// resolveSecrets replaces every `vault:mount/path#key` string with the
// secret it names.  The Vault client is built on first use only.
func resolveSecrets(ctx context.Context, cfg *Config) error {
	refs := []*string{&cfg.Database.DSN, &cfg.Revalidate.Secret}

	var cli *vault.Client
	for _, ref := range refs {
		if !strings.HasPrefix(*ref, "vault:") {
			continue
		}
		if cli == nil {
			var err error
			cli, err = vault.New(ctx, zap.S().Infof)
			if err != nil {
				return fmt.Errorf("vault client: %w", err)
			}
		}
		path, key, ok := strings.Cut(strings.TrimPrefix(*ref, "vault:"), "#")
		if !ok {
			// Short form `vault:<key>` reads from the CMS default secret.
			path, key = "", path
		}
		if key == "" {
			return fmt.Errorf("malformed vault reference %q", *ref)
		}
		val, err := cli.GetKV(ctx, path, key, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("vault read %s#%s: %w", path, key, err)
		}
		*ref = val
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
