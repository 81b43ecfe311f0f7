package cache

import "context"

// Cache composes the in-memory LRU+pin index with an optional shared
// backing store. It satisfies block.Cache.
type Cache struct {
	lru     *LRU
	backing *RedisStore
}

// New constructs a Cache. backing may be nil for a single-process,
// in-memory-only deployment (the default in tests).
func New(lru *LRU, backing *RedisStore) *Cache {
	return &Cache{lru: lru, backing: backing}
}

// Get checks the in-memory index first; on a miss it consults the
// backing store (if configured) and, on a hit there, repopulates the
// in-memory index (subject to the same eviction bounds) before
// returning the bytes.
func (c *Cache) Get(id string) ([]byte, bool) {
	if data, ok := c.lru.Get(id); ok {
		return data, true
	}
	if c.backing == nil {
		return nil, false
	}
	data, ok := c.backing.Get(context.Background(), id)
	if !ok {
		return nil, false
	}
	c.lru.Put(id, data)
	return data, true
}

// Put inserts into the in-memory index and, if configured, mirrors to
// the backing store.
func (c *Cache) Put(id string, data []byte) {
	c.lru.Put(id, data)
	if c.backing != nil {
		c.backing.Put(context.Background(), id, data)
	}
}

// Pin/Unpin/Contains delegate to the in-memory index, which is the sole
// authority on eviction and bound invariants.
func (c *Cache) Pin(ids ...string)    { c.lru.Pin(ids...) }
func (c *Cache) Unpin(ids ...string)  { c.lru.Unpin(ids...) }
func (c *Cache) Contains(id string) bool { return c.lru.Contains(id) }

func (c *Cache) BytesTotal() int64 { return c.lru.BytesTotal() }
func (c *Cache) CountTotal() int   { return c.lru.CountTotal() }
