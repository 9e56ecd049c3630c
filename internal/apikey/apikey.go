// Package apikey generates and hashes bearer credentials. It is pure: no
// storage, no transport, just the transformation from random secret material
// to the artifacts that are safe to persist.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// Namespace is the fixed textual tag every issued key starts with.
	// Downstream systems use it to recognize and route the credential type.
	Namespace = "crawd_live_"

	// PrefixLen is how many leading characters of a key are stored in
	// plaintext for display. With 24 bytes of entropy behind it, the
	// remaining suffix stays hidden.
	PrefixLen = 16

	secretBytes = 24
)

// Generate produces a new bearer credential. It returns the raw key (shown
// to the caller exactly once and never persisted), the hex SHA-256 hash used
// as the storage lookup key, and the display prefix.
func Generate() (key, hash, prefix string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("read random bytes: %w", err)
	}

	key = Namespace + base64.RawURLEncoding.EncodeToString(buf)
	return key, Hash(key), key[:PrefixLen], nil
}

// Hash returns the hex-encoded SHA-256 digest of the full key. Verification
// recomputes this over a presented token and looks the result up, so the
// digest must be deterministic.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateStreamKey produces an RTMP ingest credential. Stream keys are
// stored in plaintext (the owner needs to read them back), so no hash is
// derived.
func GenerateStreamKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "live_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
