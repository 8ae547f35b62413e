package fernet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

const (
	version = 0x80

	tsSize       = 8
	ivSize       = aes.BlockSize
	tagSize      = sha256.Size
	headerSize   = 1 + tsSize + ivSize
	overheadSize = headerSize + tagSize

	// minTokenSize is a header, one cipher block and a tag.
	minTokenSize = overheadSize + aes.BlockSize

	// maxClockSkew is how far in the future a token timestamp may be when a
	// TTL is enforced.
	maxClockSkew = 60 * time.Second
)

// Cipher seals and opens tokens under a single Key. It holds no mutable
// state and is safe for concurrent use.
type Cipher struct {
	key  *Key
	rand io.Reader
	now  func() time.Time
	ttl  time.Duration
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithRand replaces the IV entropy source. Tests use it with a fixed reader
// to produce reproducible tokens.
func WithRand(r io.Reader) Option {
	return func(c *Cipher) { c.rand = r }
}

// WithClock replaces the clock used for token timestamps and TTL checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cipher) { c.now = now }
}

// WithTTL sets the maximum token age enforced by DecryptString. Zero, the
// default, accepts tokens of any age.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cipher) { c.ttl = ttl }
}

// NewCipher creates a Cipher for the given key.
func NewCipher(key *Key, opts ...Option) *Cipher {
	c := &Cipher{
		key:  key,
		rand: rand.Reader,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encrypt seals plaintext into a new token. Every call uses a fresh IV and
// timestamp, so sealing the same plaintext twice yields different tokens.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}

	return c.seal(plaintext, iv, c.now())
}

// EncryptString seals a string.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	return c.Encrypt([]byte(plaintext))
}

func (c *Cipher) seal(plaintext, iv []byte, ts time.Time) (string, error) {
	block, err := aes.NewCipher(c.key.encryptionKey())
	if err != nil {
		return "", fmt.Errorf("init aes: %w", err)
	}

	padded := pad(plaintext)
	out := make([]byte, headerSize, headerSize+len(padded)+tagSize)
	out[0] = version
	binary.BigEndian.PutUint64(out[1:1+tsSize], uint64(ts.Unix()))
	copy(out[1+tsSize:headerSize], iv)

	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	out = append(out, ct...)
	out = append(out, c.sign(out)...)

	return base64.URLEncoding.EncodeToString(out), nil
}

// Decrypt verifies and opens a token. A positive ttl rejects tokens whose
// timestamp is older than ttl with ErrTokenExpired; zero disables the check.
// The signature is always verified before any decryption happens.
func (c *Cipher) Decrypt(token string, ttl time.Duration) ([]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if len(raw) < minTokenSize || (len(raw)-overheadSize)%aes.BlockSize != 0 {
		return nil, ErrInvalidToken
	}

	if raw[0] != version {
		return nil, ErrInvalidToken
	}

	body, tag := raw[:len(raw)-tagSize], raw[len(raw)-tagSize:]
	if !hmac.Equal(c.sign(body), tag) {
		return nil, ErrInvalidSignature
	}

	if ttl > 0 {
		ts := time.Unix(int64(binary.BigEndian.Uint64(raw[1:1+tsSize])), 0)
		now := c.now()
		if ts.Add(ttl).Before(now) {
			return nil, ErrTokenExpired
		}
		if ts.After(now.Add(maxClockSkew)) {
			return nil, ErrInvalidToken
		}
	}

	block, err := aes.NewCipher(c.key.encryptionKey())
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}

	iv := raw[1+tsSize : headerSize]
	ct := body[headerSize:]
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	pt, ok := unpad(pt)
	if !ok {
		return nil, ErrInvalidToken
	}

	return pt, nil
}

// DecryptString opens a token with the TTL configured by WithTTL and
// requires a UTF-8 payload.
func (c *Cipher) DecryptString(token string) (string, error) {
	pt, err := c.Decrypt(token, c.ttl)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(pt) {
		return "", ErrInvalidToken
	}
	return string(pt), nil
}

// Validate seals and reopens a probe value to confirm the key is usable.
func (c *Cipher) Validate() error {
	const probe = "aimanager-key-check"

	token, err := c.EncryptString(probe)
	if err != nil {
		return err
	}

	got, err := c.DecryptString(token)
	if err != nil {
		return err
	}
	if got != probe {
		return ErrInvalidKey
	}
	return nil
}

func (c *Cipher) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key.signingKey())
	mac.Write(payload)
	return mac.Sum(nil)
}

// pad applies PKCS#7 padding; it always adds between 1 and 16 bytes.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, false
	}

	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, false
	}

	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, false
		}
	}

	return b[:len(b)-n], true
}
