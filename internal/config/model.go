// internal/config/model.go
//
// Typed configuration model for the CMS.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                        – dotenv values,
//   • `conf/global.yaml`                     – primary static file,
//   • `CMS_`-prefixed environment overrides  – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling, so the model never
// stores Vault URIs once Load returns—only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  The timeout windows feed
// internal/server; zero values select that package's fallbacks.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// AllowedOrigins feeds the CORS layer; the dashboard runs on its own
	// origin.  Empty allows any origin (development).
	AllowedOrigins []string `koanf:"allowed_origins"`
}

//
// Database section
//

// Database holds the control-plane DSN.  The DSN may reference Vault for
// its password portion (`vault:secret/data/cms#db_password`), keeping
// credentials out of flat files and git history.
type Database struct {
	DSN string `koanf:"dsn" validate:"required"`
}

//
// Revalidate section
//

// Revalidate configures the outbound cache-bust webhook fired on publish.
// The shared secret is typically a `vault:` reference.
type Revalidate struct {
	Secret  string        `koanf:"secret" validate:"required"`
	Timeout time.Duration `koanf:"timeout"`
}

//
// Editor section
//

// Editor tunes the reconciler's temporal behavior.  Both windows have
// hard-coded fallbacks in internal/editor, so YAML may omit this block.
type Editor struct {
	DebounceWindow time.Duration `koanf:"debounce_window"`
	SavedDecay     time.Duration `koanf:"saved_decay"`
}

//
// GeoIP section
//

// GeoIP points at an optional MaxMind City database used by the public
// read path for visit logging.  Empty path disables the lookup.
type GeoIP struct {
	CityDB string `koanf:"city_db"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or CMS_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // CMS_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP       HTTP       `koanf:"http"`
	Database   Database   `koanf:"database"`
	Revalidate Revalidate `koanf:"revalidate"`
	Editor     Editor     `koanf:"editor"`
	GeoIP      GeoIP      `koanf:"geoip"`
	Paths      Paths      `koanf:"-"` // not loaded from config files
}
