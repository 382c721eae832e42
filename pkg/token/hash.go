// Package token provides identifier generation and hashing utilities.
package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the lowercase hex SHA-256 of s. Fingerprints and the
// fallback identifiers are built on it, so its output format is stable.
func Hash(s string) string {
	return HashBytes([]byte(s))
}

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
