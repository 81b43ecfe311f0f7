// Package block implements the content-addressed block codec and the
// engine façade that combines cache, object store, and encryption into a
// single read-through/write-through API.
package block

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"

	vaulterr "vaultfm/errors"
)

const nonceSize = 12

// Encode seals plaintext under key (32 bytes, AES-256) and tags the
// envelope with kid so a future rotation of the active key can still
// decrypt blocks written under an older one. The nonce is drawn fresh
// from crypto/rand on every call.
func Encode(plaintext []byte, key []byte, kid string) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "construct AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "construct GCM AEAD", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "generate nonce", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	kidBytes := []byte(kid)
	out := make([]byte, 0, 4+nonceSize+4+len(kidBytes)+len(ciphertext))
	out = appendU32(out, uint32(nonceSize))
	out = append(out, nonce...)
	out = appendU32(out, uint32(len(kidBytes)))
	out = append(out, kidBytes...)
	out = append(out, ciphertext...)
	return out, nil
}

// KeyLookup resolves a key-id to its 32-byte AES key.
type KeyLookup func(kid string) ([]byte, error)

// Decode parses the envelope produced by Encode, resolves its key-id
// through lookup, and AEAD-decrypts. Any structural or cryptographic
// failure is reported as CorruptBlock.
func Decode(envelope []byte, lookup KeyLookup) ([]byte, error) {
	rest := envelope

	nonceLen, rest, err := readU32(rest)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.CorruptBlock, "read nonce length", err)
	}
	if int(nonceLen) != nonceSize || len(rest) < int(nonceLen) {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "malformed nonce length")
	}
	nonce := rest[:nonceLen]
	rest = rest[nonceLen:]

	kidLen, rest, err := readU32(rest)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.CorruptBlock, "read kid length", err)
	}
	if len(rest) < int(kidLen) {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "malformed kid length")
	}
	kid := string(rest[:kidLen])
	ciphertext := rest[kidLen:]

	key, err := lookup(kid)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.CorruptBlock, "resolve key for kid "+kid, err)
	}

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "construct AES cipher", err)
	}
	gcm, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.Internal, "construct GCM AEAD", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.CorruptBlock, "authenticate block", err)
	}
	return plaintext, nil
}

func appendU32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func readU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}
