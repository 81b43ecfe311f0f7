package block

import (
	"bytes"
	"context"
	"testing"

	vaulterr "vaultfm/errors"
)

type fakeCache struct {
	data   map[string][]byte
	pinned map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte), pinned: make(map[string]bool)}
}

func (c *fakeCache) Get(id string) ([]byte, bool) { v, ok := c.data[id]; return v, ok }
func (c *fakeCache) Put(id string, data []byte)   { c.data[id] = data }
func (c *fakeCache) Contains(id string) bool      { _, ok := c.data[id]; return ok }
func (c *fakeCache) Pin(ids ...string) {
	for _, id := range ids {
		c.pinned[id] = true
	}
}
func (c *fakeCache) Unpin(ids ...string) {
	for _, id := range ids {
		delete(c.pinned, id)
	}
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, data []byte) error {
	s.objects[key] = data
	return nil
}
func (s *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		// Mirrors storage.ObjectStore.Get's classification of a genuine
		// object-store miss.
		return nil, vaulterr.New(vaulterr.NotFound, "no such object: "+key)
	}
	return data, nil
}
func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type fakeLocator struct {
	keys map[string]string
}

func (l *fakeLocator) RemoteKey(ctx context.Context, blockID string) (string, error) {
	key, ok := l.keys[blockID]
	if !ok {
		return "", errUnknownKID("no such block: " + blockID)
	}
	return key, nil
}

func newTestEngine() (*Engine, *fakeCache, *fakeObjectStore) {
	cache := newFakeCache()
	objects := newFakeObjectStore()
	locator := &fakeLocator{keys: map[string]string{"b1": "blocks/aa/bb/b1.bin"}}
	key := testKey()
	engine := NewEngine(cache, objects, locator, func(kid string) ([]byte, error) { return key, nil })
	return engine, cache, objects
}

func TestEngineStoreThenFetchRoundTrip(t *testing.T) {
	engine, cache, objects := newTestEngine()
	ctx := context.Background()

	plaintext := []byte("track audio bytes")
	envelope, err := Encode(plaintext, testKey(), "k1")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if err := engine.StoreEncrypted(ctx, "blocks/aa/bb/b1.bin", "b1", envelope); err != nil {
		t.Fatalf("StoreEncrypted: %v", err)
	}
	if _, ok := objects.objects["blocks/aa/bb/b1.bin"]; !ok {
		t.Fatal("expected object store to hold the encrypted block")
	}
	if _, ok := cache.data["b1"]; !ok {
		t.Fatal("expected cache to hold the encrypted block after store")
	}

	got, err := engine.FetchPlaintext(ctx, "b1")
	if err != nil {
		t.Fatalf("FetchPlaintext: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q want %q", got, plaintext)
	}
}

func TestEngineFetchFallsBackToObjectStoreOnCacheMiss(t *testing.T) {
	engine, cache, objects := newTestEngine()
	ctx := context.Background()

	plaintext := []byte("cold path bytes")
	envelope, err := Encode(plaintext, testKey(), "k1")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	objects.objects["blocks/aa/bb/b1.bin"] = envelope

	got, err := engine.FetchPlaintext(ctx, "b1")
	if err != nil {
		t.Fatalf("FetchPlaintext: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q want %q", got, plaintext)
	}
	if _, ok := cache.data["b1"]; !ok {
		t.Fatal("expected object-store hit to populate the cache")
	}
}

func TestEngineFetchPlaintextSurfacesNotFoundOnMissingObject(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	// b1 resolves through the locator but was never stored, so the
	// object-store lookup itself misses.
	_, err := engine.FetchPlaintext(ctx, "b1")
	if err == nil {
		t.Fatal("expected an error for a block missing from the object store")
	}
	if !vaulterr.Is(err, vaulterr.NotFound) {
		t.Fatalf("expected a NotFound-kind error, got %v (kind=%v)", err, vaulterr.KindOf(err))
	}
}

func TestEngineSeedPinsWithoutDecrypting(t *testing.T) {
	engine, cache, objects := newTestEngine()
	ctx := context.Background()

	envelope, err := Encode([]byte("seeded bytes"), testKey(), "k1")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	objects.objects["blocks/aa/bb/b1.bin"] = envelope

	if err := engine.Seed(ctx, []string{"b1"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !cache.pinned["b1"] {
		t.Fatal("expected b1 to be pinned after Seed")
	}
	if !cache.Contains("b1") {
		t.Fatal("expected b1 to be resident in cache after Seed")
	}

	engine.Unseed([]string{"b1"})
	if cache.pinned["b1"] {
		t.Fatal("expected b1 to be unpinned after Unseed")
	}
}
