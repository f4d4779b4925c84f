// internal/routing/slug_test.go
//
// Unit-tests for MakeSlug and BuildPath.
//
// Run: go test ./internal/routing -v

package routing

import "testing"

func TestMakeSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"About Us", "about-us"},
		{"  Hello,   World!  ", "hello-world"},
		{"Ωmega page", "mega-page"},
		{"---", "page"},
		{"", "page"},
		{"Already-kebab", "already-kebab"},
	}
	for _, c := range cases {
		if got := MakeSlug(c.in); got != c.want {
			t.Errorf("MakeSlug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildPath(t *testing.T) {
	cases := []struct {
		parent, slug, want string
	}{
		{"", "", "/"},
		{"", "about", "/about"},
		{"blog", "", "/blog"},
		{"blog/", "/first-post", "/blog/first-post"},
	}
	for _, c := range cases {
		if got := BuildPath(c.parent, c.slug); got != c.want {
			t.Errorf("BuildPath(%q, %q) = %q, want %q", c.parent, c.slug, got, c.want)
		}
	}
}
