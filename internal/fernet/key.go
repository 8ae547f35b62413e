// Package fernet implements the Fernet authenticated token format used to
// encrypt secrets at rest. Tokens produced here are readable by any other
// conforming implementation holding the same 32-byte key.
package fernet

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const keySize = 32

// Key is the 32-byte key material: the first half signs, the second half
// encrypts. A Key is immutable once constructed and safe to share.
type Key struct {
	raw     [keySize]byte
	derived bool
}

// ParseKey normalises a key string into key material.
//
// Input that is canonical URL-safe base64 (padding included) of exactly 32
// bytes is used as-is. Any other string is treated as a passphrase and hashed
// with SHA-256. The passphrase path is a convenience for operators and is
// strictly weaker than a randomly generated key: the result carries no more
// entropy than the passphrase itself. Use GenerateKey for real deployments.
//
// ErrInvalidKey is reserved for a stricter policy; under the current rules
// every string yields a key.
func ParseKey(s string) (*Key, error) {
	if raw, ok := decodeCanonical(s); ok {
		k := &Key{}
		copy(k.raw[:], raw)
		return k, nil
	}

	return &Key{raw: sha256.Sum256([]byte(s)), derived: true}, nil
}

// GenerateKey returns a fresh random key.
func GenerateKey() (*Key, error) {
	k := &Key{}
	if _, err := rand.Read(k.raw[:]); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

func decodeCanonical(s string) ([]byte, bool) {
	if len(s) != base64.URLEncoding.EncodedLen(keySize) {
		return nil, false
	}

	raw, err := base64.URLEncoding.Strict().DecodeString(s)
	if err != nil || len(raw) != keySize {
		return nil, false
	}

	return raw, true
}

// Encode returns the canonical text form of the key. Only key generation
// tooling should call this.
func (k *Key) Encode() string {
	return base64.URLEncoding.EncodeToString(k.raw[:])
}

// IsDerived reports whether the key was derived from a passphrase rather
// than supplied as raw key material.
func (k *Key) IsDerived() bool {
	return k.derived
}

// Equal reports whether two keys hold the same material.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.raw == other.raw
}

func (k *Key) signingKey() []byte {
	return k.raw[:16]
}

func (k *Key) encryptionKey() []byte {
	return k.raw[16:]
}

// String never reveals key material.
func (k *Key) String() string {
	return "fernet.Key(REDACTED)"
}

// GoString keeps %#v from dumping key bytes.
func (k *Key) GoString() string {
	return k.String()
}
