// internal/middleware/security.go
//
// Security-header middleware for the CMS API.
//
// The CMS answers JSON only — the dashboard and the tenants' live sites
// render elsewhere — so the policy is stricter than a page-serving
// default: nothing may be loaded, framed, or executed from an API
// response.
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • Content-Security-Policy    –  deny-all; API payloads are data
//   • X-Frame-Options            –  no framing of API responses
//   • X-Content-Type-Options     –  MIME-sniffing defence
//   • Referrer-Policy            –  drops path/query from Referer
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; a handler may still
//   overwrite any of them for a specific route.
// • Even behind the TLS-terminating proxy, HSTS stays useful because
//   browsers see each tenant's domain as HTTPS.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security sets security headers for every API response.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains; preload"
		csp  = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
