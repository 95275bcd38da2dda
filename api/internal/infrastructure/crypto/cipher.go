package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"peerloop/api/internal/core/domain"
)

// ErrDecryptionFailed is the single failure signal for every decrypt problem:
// wrong key, tampered ciphertext, truncated data, bad encoding. Collapsing the
// cases avoids giving callers a padding-style oracle.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

// Cipher is an AES-256-GCM field cipher. Ciphertexts are nonce-prefixed and
// base64url encoded for storage in text columns.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a field cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, errors.New("crypto: key must be 32 bytes for AES-256")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: GCM failure: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// EncryptString seals plaintext under a fresh random nonce. Empty plaintext is
// rejected: an empty encrypted column would be indistinguishable from a
// missing one.
func (c *Cipher) EncryptString(plaintext string, associatedData []byte) (string, error) {
	if plaintext == "" {
		return "", errors.New("crypto: refusing to encrypt empty plaintext")
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce generation failure: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), associatedData)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a nonce-prefixed ciphertext. Any failure maps to
// ErrDecryptionFailed without detail.
func (c *Cipher) DecryptString(ciphertext string, associatedData []byte) (string, error) {
	data, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	ns := c.aead.NonceSize()
	if len(data) < ns {
		return "", ErrDecryptionFailed
	}

	nonce, sealed := data[:ns], data[ns:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, associatedData)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Provider implements domain.CipherProvider: a process-lifetime master cipher
// plus per-request token-derived ciphers.
type Provider struct {
	master *Cipher
}

// NewProvider derives the master field key from the configured secret and
// prepares the master cipher once at boot.
func NewProvider(encryptionSecret string) (*Provider, error) {
	key, err := DeriveMasterKey(encryptionSecret)
	if err != nil {
		return nil, err
	}

	master, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	// The derived key lives on inside the AEAD schedule; drop the raw copy.
	for i := range key {
		key[i] = 0
	}

	return &Provider{master: master}, nil
}

func (p *Provider) Master() domain.FieldCipher {
	return p.master
}

func (p *Provider) ForToken(managerToken string) (domain.FieldCipher, error) {
	if managerToken == "" {
		return nil, errors.New("crypto: manager token is required")
	}
	return NewCipher(DeriveTokenKey(managerToken))
}
