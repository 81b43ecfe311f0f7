package block

import (
	"context"

	vaulterr "vaultfm/errors"
	"vaultfm/logger"
)

// Cache is the subset of cache.Cache the block engine depends on. It is
// declared here, not imported from the cache package, so block stays a
// leaf package with no dependency on cache's Redis backend.
type Cache interface {
	Get(id string) ([]byte, bool)
	Put(id string, data []byte)
	Contains(id string) bool
	Pin(ids ...string)
	Unpin(ids ...string)
}

// ObjectStore is the subset of storage.ObjectStore the block engine
// depends on.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Locator resolves a block-id to its remote object-store key. It is
// satisfied by the metadata store's Block repository.
type Locator interface {
	RemoteKey(ctx context.Context, blockID string) (string, error)
}

// Engine combines the cache, object store, and codec into the single
// read-through/write-through façade the rest of the engine uses.
type Engine struct {
	cache   Cache
	objects ObjectStore
	locator Locator
	keyFor  KeyLookup
}

// NewEngine constructs a block engine over the given collaborators.
func NewEngine(cache Cache, objects ObjectStore, locator Locator, keyFor KeyLookup) *Engine {
	return &Engine{cache: cache, objects: objects, locator: locator, keyFor: keyFor}
}

// FetchPlaintext resolves block_id to its remote key, serves the
// encrypted bytes from cache on a hit, falls back to the object store on
// a miss (populating the cache), and returns the decrypted plaintext.
func (e *Engine) FetchPlaintext(ctx context.Context, blockID string) ([]byte, error) {
	remoteKey, err := e.locator.RemoteKey(ctx, blockID)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.NotFound, "locate block "+blockID, err)
	}

	encrypted, hit := e.cache.Get(blockID)
	if !hit {
		encrypted, err = e.objects.Get(ctx, remoteKey)
		if err != nil {
			kind := vaulterr.TransientIO
			if vaulterr.Is(err, vaulterr.NotFound) {
				kind = vaulterr.NotFound
			}
			return nil, vaulterr.Wrap(kind, "fetch block "+blockID+" from object store", err)
		}
		e.cache.Put(blockID, encrypted)
	}

	plaintext, err := Decode(encrypted, e.keyFor)
	if err != nil {
		logger.Warn("block decode failed",
			logger.String("block_id", blockID),
			logger.ErrorField(err))
		return nil, err
	}
	return plaintext, nil
}

// StoreEncrypted durably persists an already-encrypted block: a
// write-through to the object store followed by a cache insert. Callers
// (the import pipeline's uploader stage) are responsible for the
// companion metadata-store transaction that records the Block row.
func (e *Engine) StoreEncrypted(ctx context.Context, remoteKey string, blockID string, encrypted []byte) error {
	if err := e.objects.Put(ctx, remoteKey, encrypted); err != nil {
		return vaulterr.Wrap(vaulterr.TransientIO, "upload block "+blockID, err)
	}
	e.cache.Put(blockID, encrypted)
	return nil
}

// Seed pins every id in blockIDs in the cache (§5), fetching any that
// are not already resident through the object store first. It never
// decrypts — seeding only needs the encrypted bytes to be locally
// available to an external acquisition subsystem.
func (e *Engine) Seed(ctx context.Context, blockIDs []string) error {
	for _, id := range blockIDs {
		if e.cache.Contains(id) {
			continue
		}
		remoteKey, err := e.locator.RemoteKey(ctx, id)
		if err != nil {
			return vaulterr.Wrap(vaulterr.NotFound, "locate block "+id, err)
		}
		encrypted, err := e.objects.Get(ctx, remoteKey)
		if err != nil {
			kind := vaulterr.TransientIO
			if vaulterr.Is(err, vaulterr.NotFound) {
				kind = vaulterr.NotFound
			}
			return vaulterr.Wrap(kind, "fetch block "+id+" from object store", err)
		}
		e.cache.Put(id, encrypted)
	}
	e.cache.Pin(blockIDs...)
	return nil
}

// Unseed releases the pin §5's seeding sets, letting the cache evict
// those blocks under normal LRU pressure again.
func (e *Engine) Unseed(blockIDs []string) {
	e.cache.Unpin(blockIDs...)
}
