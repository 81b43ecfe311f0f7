package cache

import "testing"

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(0, 2)

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Put("c", []byte("3")) // evicts "a"

	if c.Contains("a") {
		t.Fatal("expected a to be evicted")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Fatal("expected b and c to remain resident")
	}
	if got := c.CountTotal(); got != 2 {
		t.Fatalf("CountTotal = %d, want 2", got)
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRU(0, 2)

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be resident")
	}
	c.Put("c", []byte("3")) // b is now least recently used, evicted instead of a

	if !c.Contains("a") {
		t.Fatal("expected a to survive because it was touched by Get")
	}
	if c.Contains("b") {
		t.Fatal("expected b to be evicted as the least recently used entry")
	}
}

func TestLRURespectsByteBound(t *testing.T) {
	c := NewLRU(10, 0)

	c.Put("a", []byte("12345")) // 5 bytes
	c.Put("b", []byte("12345")) // 10 bytes total, within bound
	c.Put("c", []byte("12345")) // pushes to 15, evicts a

	if c.Contains("a") {
		t.Fatal("expected a to be evicted once total bytes exceeded the bound")
	}
	if c.BytesTotal() > 10 {
		t.Fatalf("BytesTotal = %d, exceeds bound of 10", c.BytesTotal())
	}
}

func TestLRUPinnedEntriesAreNeverEvicted(t *testing.T) {
	c := NewLRU(0, 1)

	c.Put("a", []byte("1"))
	c.Pin("a")
	c.Put("b", []byte("2")) // would normally evict a, but a is pinned

	if !c.Contains("a") {
		t.Fatal("expected pinned entry a to survive eviction pressure")
	}
	if c.Contains("b") {
		t.Fatal("expected unpinned b to be evicted to restore the count bound")
	}
	// the pinned set alone (a) fits the bound, so the bound holds again
	if c.CountTotal() != 1 {
		t.Fatalf("CountTotal = %d, want 1", c.CountTotal())
	}
}

func TestLRUUnpinAllowsEvictionAgain(t *testing.T) {
	c := NewLRU(0, 1)

	c.Put("a", []byte("1"))
	c.Pin("a")
	c.Unpin("a")
	c.Put("b", []byte("2"))

	if c.Contains("a") {
		t.Fatal("expected a to be evicted once its pin was released")
	}
}

func TestLRUPinBeforeResidencyTakesEffectOnNextPut(t *testing.T) {
	c := NewLRU(0, 1)

	c.Pin("a") // not resident yet
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))

	if !c.Contains("a") {
		t.Fatal("expected pre-emptive pin to still protect a once it became resident")
	}
}
