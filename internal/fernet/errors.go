package fernet

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Key and Cipher operations.
var (
	// ErrInvalidKey indicates unusable key material.
	ErrInvalidKey = errors.New("fernet: invalid key")

	// ErrInvalidToken indicates a malformed token: bad encoding, length,
	// version, padding, or a non-UTF-8 payload where a string was expected.
	ErrInvalidToken = errors.New("fernet: invalid token")

	// ErrInvalidSignature indicates an HMAC mismatch. A tampered token and a
	// token sealed under another key are deliberately indistinguishable.
	ErrInvalidSignature = errors.New("fernet: invalid signature")

	// ErrTokenExpired indicates the token is older than the requested TTL.
	ErrTokenExpired = errors.New("fernet: token expired")
)

// BatchError reports the first failing element of a batch operation.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
