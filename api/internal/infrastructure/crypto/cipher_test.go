package crypto_test

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"peerloop/api/internal/infrastructure/crypto"
)

// generateTestKey creates a random 256-bit AES key.
func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("Failed to generate test key: %v", err)
	}
	return key
}

func TestCipher_EncryptDecrypt_RoundTrip(t *testing.T) {
	c, err := crypto.NewCipher(generateTestKey(t))
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	plaintext := "Grace Hopper <grace@example.com>"
	aad := []byte("evaluation-uuid-1234")

	ciphertext, err := c.EncryptString(plaintext, aad)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	decrypted, err := c.DecryptString(ciphertext, aad)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if decrypted != plaintext {
		t.Errorf("Round-trip failed: got %q, want %q", decrypted, plaintext)
	}
}

func TestCipher_WrongKey_Fails(t *testing.T) {
	c1, _ := crypto.NewCipher(generateTestKey(t))
	c2, _ := crypto.NewCipher(generateTestKey(t))

	ciphertext, err := c1.EncryptString("member name", nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = c2.DecryptString(ciphertext, nil)
	if !errors.Is(err, crypto.ErrDecryptionFailed) {
		t.Fatalf("Expected ErrDecryptionFailed with wrong key, got %v", err)
	}
}

func TestCipher_AAD_Binding(t *testing.T) {
	c, err := crypto.NewCipher(generateTestKey(t))
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	ciphertext, err := c.EncryptString("alice@example.com", []byte("evaluation-a"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// A ciphertext moved to a different record must fail authentication.
	if _, err := c.DecryptString(ciphertext, []byte("evaluation-b")); err == nil {
		t.Fatal("Decrypt succeeded with mismatched AAD — record binding is broken")
	}

	decrypted, err := c.DecryptString(ciphertext, []byte("evaluation-a"))
	if err != nil {
		t.Fatalf("Decrypt with correct AAD failed: %v", err)
	}
	if decrypted != "alice@example.com" {
		t.Errorf("AAD round-trip failed: got %q", decrypted)
	}
}

func TestCipher_Ciphertext_Tamper_Detection(t *testing.T) {
	c, err := crypto.NewCipher(generateTestKey(t))
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	ciphertext, err := c.EncryptString("sensitive-comment", nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	tampered := []byte(ciphertext)
	if tampered[10] == 'a' {
		tampered[10] = 'b'
	} else {
		tampered[10] = 'a'
	}

	_, err = c.DecryptString(string(tampered), nil)
	if !errors.Is(err, crypto.ErrDecryptionFailed) {
		t.Fatalf("Expected ErrDecryptionFailed for tampered ciphertext, got %v", err)
	}
}

func TestCipher_Nonce_Uniqueness(t *testing.T) {
	c, err := crypto.NewCipher(generateTestKey(t))
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	// Encrypt the SAME plaintext 100 times; every ciphertext must differ.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ct, err := c.EncryptString("identical-plaintext", []byte("same-aad"))
		if err != nil {
			t.Fatalf("Encrypt #%d failed: %v", i, err)
		}
		if seen[ct] {
			t.Fatalf("Nonce reuse detected at iteration %d — identical ciphertext produced", i)
		}
		seen[ct] = true
	}
}

func TestCipher_Rejects_Empty_Plaintext(t *testing.T) {
	c, err := crypto.NewCipher(generateTestKey(t))
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	if _, err := c.EncryptString("", nil); err == nil {
		t.Fatal("Encrypt accepted empty plaintext")
	}
}

func TestCipher_Rejects_Short_Key(t *testing.T) {
	if _, err := crypto.NewCipher(make([]byte, 16)); err == nil {
		t.Fatal("Accepted 128-bit key — must require 256-bit")
	}
	if _, err := crypto.NewCipher(nil); err == nil {
		t.Fatal("Accepted nil key")
	}
}

func TestCipher_Garbage_Ciphertext(t *testing.T) {
	c, _ := crypto.NewCipher(generateTestKey(t))

	for _, ct := range []string{"", "!!!not-base64!!!", "YWJj"} {
		if _, err := c.DecryptString(ct, nil); !errors.Is(err, crypto.ErrDecryptionFailed) {
			t.Errorf("Expected ErrDecryptionFailed for %q, got %v", ct, err)
		}
	}
}

func TestProvider_TokenCipher_IsTokenDerived(t *testing.T) {
	p, err := crypto.NewProvider(strings.Repeat("s", 32))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	token := "6f0f1c1e-8a4b-4c2d-9d3e-5b6a7c8d9e0f"

	c1, err := p.ForToken(token)
	if err != nil {
		t.Fatalf("ForToken failed: %v", err)
	}

	ciphertext, err := c1.EncryptString("Q1 Review", nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// A second cipher derived from the same token opens it.
	c2, _ := p.ForToken(token)
	got, err := c2.DecryptString(ciphertext, nil)
	if err != nil || got != "Q1 Review" {
		t.Fatalf("Same-token decrypt failed: %v (got %q)", err, got)
	}

	// A different token does not, and neither does the master cipher.
	other, _ := p.ForToken("a different capability")
	if _, err := other.DecryptString(ciphertext, nil); err == nil {
		t.Fatal("Decrypt succeeded under a different token")
	}
	if _, err := p.Master().DecryptString(ciphertext, nil); err == nil {
		t.Fatal("Master key opened a token-wrapped field — the server must not be able to")
	}
}

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	secret := strings.Repeat("k", 40)

	k1, err := crypto.DeriveMasterKey(secret)
	if err != nil {
		t.Fatalf("DeriveMasterKey failed: %v", err)
	}
	k2, _ := crypto.DeriveMasterKey(secret)

	if string(k1) != string(k2) {
		t.Error("Master key derivation is not deterministic")
	}
	if len(k1) != 32 {
		t.Errorf("Expected 32-byte key, got %d", len(k1))
	}

	if _, err := crypto.DeriveMasterKey("too short"); err == nil {
		t.Error("Accepted a secret below 32 characters")
	}
}
