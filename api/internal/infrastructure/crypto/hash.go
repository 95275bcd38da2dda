package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the hex SHA-256 digest of text. Deterministic and unsalted on
// purpose: lookups by email or access code work by comparing digests, so the
// same input must always produce the same column value.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HashEmail normalizes before hashing so lookups are case-insensitive.
func HashEmail(email string) string {
	return Hash(strings.ToLower(strings.TrimSpace(email)))
}

// HashAccessCode hashes the raw 6-digit string.
func HashAccessCode(code string) string {
	return Hash(code)
}
