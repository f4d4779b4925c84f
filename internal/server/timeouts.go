// internal/server/timeouts.go
//
// HTTP server construction for the CMS API.
//
// The windows matter here: the dashboard holds keep-alive connections
// while polling the editor save indicator, and a publish request may
// wait on the live site's revalidation webhook, so WriteTimeout must
// sit above revalidate.timeout or publishes get cut off mid-response.
// All three windows come from the http config section; zero values
// select the fallbacks below.
//

package server

import (
	"net/http"
	"time"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/config"
)

// Fallbacks applied when the config section leaves a window unset.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 15 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// New constructs the API *http.Server from the HTTP config section.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	read, write, idle := cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout
	if read == 0 {
		read = DefaultReadTimeout
	}
	if write == 0 {
		write = DefaultWriteTimeout
	}
	if idle == 0 {
		idle = DefaultIdleTimeout
	}
	return &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
		// TLSConfig may be injected by callers (e.g., autocert).
	}
}
