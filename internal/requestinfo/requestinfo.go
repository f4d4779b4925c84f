//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, IP + geolocation, URL, and timestamp).
//  These structs are inert.  They contain no pointers to database
//  handles or large buffers, so they are safe to log or JSON-encode.
//
//  Dependencies
//  • internal/ua                       (uasurfer wrapper)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Geo holds IP-based geolocation hints.
// These are best-effort and may be empty if the DB has no match.
type Geo struct {
	IP         net.IP // Original client address (not X-Forwarded-For chain)
	CountryISO string // "US", "CA", "FR", ...
	City       string // "Chicago", "Paris", ...
}

// RequestInfo is stored in the request context by Enrich and is visible
// to any handler downstream of it.
type RequestInfo struct {
	UA          ua.Info
	Geo         Geo
	PrimaryLang string   // First tag from Accept-Language ("en", "es", ...)
	URL         *url.URL // Pointer copy, safe to dereference read-only
	Timestamp   time.Time
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle.  It is safe for concurrent
// reads, which is all we ever perform.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database.  Geo lookups are optional;
// when the path is empty or the open fails, lookupGeo degrades to
// IP-only results and the error is returned for the caller to log.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	parts := strings.Split(al, ",")
	tag := strings.TrimSpace(parts[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
