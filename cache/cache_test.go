package cache

import "testing"

func TestCacheDelegatesToLRUWithoutBackingStore(t *testing.T) {
	c := New(NewLRU(0, 10), nil)

	c.Put("a", []byte("bytes"))
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected a to be resident")
	}
	if string(got) != "bytes" {
		t.Fatalf("got %q want %q", got, "bytes")
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected a clean miss for an absent id")
	}
}

func TestCachePinUnpinContainsDelegate(t *testing.T) {
	c := New(NewLRU(0, 1), nil)

	c.Put("a", []byte("1"))
	c.Pin("a")
	c.Put("b", []byte("2"))

	if !c.Contains("a") {
		t.Fatal("expected pinned a to remain resident despite the count bound")
	}
	c.Unpin("a")
	c.Put("c", []byte("3"))
	if c.Contains("a") {
		t.Fatal("expected a to become evictable again once unpinned")
	}
}
