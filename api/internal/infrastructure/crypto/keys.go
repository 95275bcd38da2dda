package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdf parameters for the master field key. The salt is a fixed application
// constant: the input secret is already high-entropy configuration, not a
// password, so the salt only needs to domain-separate this derivation.
var masterKeySalt = []byte("peerloop.master.v1")

const masterKeyInfo = "member-fields"

// DeriveTokenKey turns a manager token into its AES-256 key: SHA-256(token).
// The token is both the capability credential and the key material, so
// whoever can name the token can open everything encrypted under it.
func DeriveTokenKey(managerToken string) []byte {
	sum := sha256.Sum256([]byte(managerToken))
	return sum[:]
}

// DeriveMasterKey derives the AES-256 key for member fields from the
// configured encryption secret via HKDF-SHA256.
func DeriveMasterKey(secret string) ([]byte, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("crypto: encryption secret must be at least 32 characters")
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), masterKeySalt, []byte(masterKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("crypto: master key derivation failed: %w", err)
	}
	return key, nil
}
