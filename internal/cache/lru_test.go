// internal/cache/lru_test.go
//
// Run: go test ./internal/cache -v

package cache

import "testing"

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Add("a", 1)
	c.Add("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should have survived")
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestRemoveFunc(t *testing.T) {
	c := New(8)
	c.Add("t1/home", 1)
	c.Add("t1/about", 2)
	c.Add("t2/home", 3)

	c.RemoveFunc(func(key any) bool {
		k := key.(string)
		return len(k) > 2 && k[:3] == "t1/"
	})

	if _, ok := c.Get("t1/home"); ok {
		t.Fatal("t1 entries should be gone")
	}
	if _, ok := c.Get("t2/home"); !ok {
		t.Fatal("t2 entry should survive")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := New(2)
	c.Add("k", 1)
	c.Remove("k")
	c.Remove("k")
	if c.Len() != 0 {
		t.Fatalf("len = %d", c.Len())
	}
}
