// Package keys supplies the engine's symmetric key material. A single
// root secret is stretched via HKDF into as many per-key-id AES-256 keys
// as have ever been active, so rotating the active key-id is a one-line
// config change rather than provisioning a new independent secret.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	vaulterr "vaultfm/errors"
)

// Provider is a read-mostly key-id -> key map over a fixed root secret:
// each kid's key is derived on its first KeyFor call and cached under a
// mutex. It satisfies block.KeyLookup via KeyFor.
type Provider struct {
	root      []byte
	activeKID string

	mu     sync.Mutex
	cache  map[string][]byte
}

// NewProvider derives a provider from a hex-encoded root secret and the
// key-id that newly encrypted blocks should be tagged with.
func NewProvider(masterKeyHex, activeKID string) (*Provider, error) {
	root, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "decode master key hex", err)
	}
	if len(root) == 0 {
		return nil, vaulterr.New(vaulterr.Internal, "master key is empty")
	}
	return &Provider{
		root:      root,
		activeKID: activeKID,
		cache:     make(map[string][]byte),
	}, nil
}

// ActiveKID returns the key-id newly encrypted blocks should be tagged with.
func (p *Provider) ActiveKID() string { return p.activeKID }

// KeyFor derives (or returns the cached) 32-byte AES key for kid. The
// same (root, kid) pair always derives the same key, so historical
// blocks encrypted under a prior active kid remain decryptable forever
// as long as the root secret does not change.
func (p *Provider) KeyFor(kid string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := p.cache[kid]; ok {
		return key, nil
	}

	hk := hkdf.New(sha256.New, p.root, nil, []byte("vaultfm-block-key:"+kid))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "derive key for kid "+kid, err)
	}
	p.cache[kid] = key
	return key, nil
}
