package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit with value 1, got %q %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now the most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if n := c.Size(); n != 0 {
		t.Fatalf("expected expired entry removed on read, size = %d", n)
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("user:1:a", 1)
	c.Set("user:1:b", 2)
	c.Set("user:2:a", 3)

	if n := c.DeletePrefix("user:1:"); n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}
	if _, ok := c.Get("user:1:a"); ok {
		t.Fatal("expected user:1 entries removed")
	}
	if _, ok := c.Get("user:2:a"); !ok {
		t.Fatal("expected user:2 entry to survive")
	}
}
