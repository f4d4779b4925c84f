// internal/revalidate/revalidate.go
//
// Best-effort cache-bust webhook fired at a tenant's live site after
// publish.
//
// Context
// -------
// Each tenant site caches rendered pages at its edge.  When an editor
// publishes, the CMS POSTs `https://<domain>/api/revalidate` with a shared
// secret so the site drops its cached copies.  The call is advisory: a
// dead site must never block or roll back a publish, so errors propagate
// to the caller only for logging and metrics.
//
// Notes
// -----
//   - The secret typically comes out of Vault via the config loader.
//   - Timeout guards against a tenant site that accepts and stalls.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client posts revalidation pings.  Safe for concurrent use.
type Client struct {
	secret string
	http   *http.Client
}

// New builds a Client with the shared secret.  timeout <= 0 selects the
// default.
func New(secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		secret: secret,
		http:   &http.Client{Timeout: timeout},
	}
}

// payload mirrors what tenant sites expect on /api/revalidate.
type payload struct {
	Secret       string `json:"secret"`
	TenantDomain string `json:"tenantDomain"`
}

// Notify POSTs the revalidation request to the tenant's live domain.  A
// bare domain gets an https:// prefix.  Non-2xx responses are errors so
// the caller can count them; they carry no body detail on purpose.
func (c *Client) Notify(ctx context.Context, liveDomain string) error {
	domain := strings.TrimSpace(liveDomain)
	if domain == "" {
		return fmt.Errorf("revalidate: empty domain")
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}

	body, err := json.Marshal(payload{Secret: c.secret, TenantDomain: liveDomain})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(domain, "/")+"/api/revalidate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revalidate: %s responded %d", domain, resp.StatusCode)
	}
	return nil
}
