// Package secret generates signing secrets and derives key identifiers.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// secretBytes is the entropy of a generated secret: 256 bits.
const secretBytes = 32

// idDigestLen is the number of hex digest characters appended to a derived
// key id.
const idDigestLen = 8

// idSalt is mixed into the label digest so derived ids are not predictable
// from the label alone.
const idSalt = "attestly.keyid.v1:"

// Generate returns a new signing secret: 32 bytes of cryptographically
// secure randomness, base64 URL-safe encoded without padding. The encoded
// length is always 43 characters.
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DeriveKeyID computes a deterministic key identifier from a human-readable
// label. The label is lowercased with internal whitespace collapsed to
// single underscores, then suffixed with a fixed-length salted SHA-256
// digest of the raw label. Distinct labels collide only on a hash collision,
// which is surfaced as a conflict by the caller rather than retried.
func DeriveKeyID(label string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(label), "_"))
	sum := sha256.Sum256([]byte(idSalt + label))
	digest := hex.EncodeToString(sum[:])[:idDigestLen]
	if norm == "" {
		return digest
	}
	return norm + "_" + digest
}
