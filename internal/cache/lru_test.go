package cache

import (
	"testing"
	"time"

	"github.com/farejai/fareja/internal/models"
)

func TestCache_SetAndGet(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}

	c.Set(&models.Promotion{ID: "p1", ShortID: "abc123", Title: "Fone"})

	got, found := c.Get("abc123")
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.ID != "p1" || got.Title != "Fone" {
		t.Errorf("got %+v, want promotion p1", got)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}

	if _, found := c.Get("nonexistent"); found {
		t.Error("expected cache miss")
	}
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}

	c.Set(&models.Promotion{ShortID: "a"})
	c.Set(&models.Promotion{ShortID: "b"})
	c.Invalidate("a")
	if _, found := c.Get("a"); found {
		t.Error("expected cache miss after invalidate")
	}

	c.Purge()
	if _, found := c.Get("b"); found {
		t.Error("expected cache miss after purge")
	}
}

func TestCache_EvictsLRU(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	c.Set(&models.Promotion{ShortID: "a"})
	c.Set(&models.Promotion{ShortID: "b"})
	// Access "a" to make "b" the LRU
	c.Get("a")
	c.Set(&models.Promotion{ShortID: "c"})

	if _, found := c.Get("b"); found {
		t.Error("expected 'b' to be evicted")
	}
	if _, found := c.Get("a"); !found {
		t.Error("expected 'a' to still be cached")
	}
}

func TestImageCache_Expires(t *testing.T) {
	ic := NewImageCache(10, 50*time.Millisecond)
	ic.Set("og:abc", []byte{1, 2, 3})

	if b, ok := ic.Get("og:abc"); !ok || len(b) != 3 {
		t.Fatalf("expected hit, got %v %v", b, ok)
	}

	time.Sleep(150 * time.Millisecond)
	if _, ok := ic.Get("og:abc"); ok {
		t.Error("expected entry to expire")
	}
}

func TestImageCache_Invalidate(t *testing.T) {
	ic := NewImageCache(10, time.Hour)
	ic.Set("k", []byte("x"))
	ic.Invalidate("k")
	if _, ok := ic.Get("k"); ok {
		t.Error("expected miss after invalidate")
	}
}
