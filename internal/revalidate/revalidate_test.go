// internal/revalidate/revalidate_test.go
//
// Run: go test ./internal/revalidate -v

package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotifyPostsSecretAndDomain(t *testing.T) {
	var got payload
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("s3cret", time.Second)
	if err := c.Notify(context.Background(), srv.URL); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if path != "/api/revalidate" {
		t.Fatalf("wrong path %q", path)
	}
	if got.Secret != "s3cret" || got.TenantDomain != srv.URL {
		t.Fatalf("wrong payload: %#v", got)
	}
}

func TestNotifyRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("nope", time.Second)
	if err := c.Notify(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestNotifyEmptyDomain(t *testing.T) {
	c := New("x", 0)
	if err := c.Notify(context.Background(), "  "); err == nil {
		t.Fatal("expected error on empty domain")
	}
}
