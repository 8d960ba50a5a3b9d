// Package vault turns plaintext passwords into storable, non-reversible
// digests and verifies presented passwords against them. Plaintext is never
// retained or logged.
package vault

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations makes each derivation deliberately slow so brute-forcing
	// requires proportionally large work per guess.
	Iterations = 100_000
	saltBytes  = 16
	keyBytes   = 32
)

// NewSalt generates a cryptographically random salt, hex encoded.
func NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash derives the digest of password under the given hex salt using
// PBKDF2-HMAC-SHA256. The same (password, salt) pair always yields the same
// digest.
func Hash(password, salt string) string {
	dk := pbkdf2.Key([]byte(password), []byte(salt), Iterations, keyBytes, sha256.New)
	return hex.EncodeToString(dk)
}

// HashPassword derives a digest under a fresh random salt and returns both.
func HashPassword(password string) (digest, salt string, err error) {
	salt, err = NewSalt()
	if err != nil {
		return "", "", err
	}
	return Hash(password, salt), salt, nil
}

// Equal compares two hex digests in constant time.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// LegacyHash computes the single unsalted SHA-1 digest used by records
// created before salted hashing was adopted. It exists only as a one-time
// migration path; new digests must never be produced with it.
func LegacyHash(password string) string {
	sum := sha1.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
