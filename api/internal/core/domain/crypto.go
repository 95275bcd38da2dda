package domain

// FieldCipher encrypts and decrypts individual PII fields with AEAD.
// The associated data binds a ciphertext to its owning record so a value
// copied between rows fails authentication on read.
type FieldCipher interface {
	// EncryptString rejects empty plaintext: an empty encrypted column is
	// indistinguishable from a missing one, so it is never written.
	EncryptString(plaintext string, associatedData []byte) (string, error)

	// DecryptString returns a single generic error for a wrong key, tampered
	// data or a malformed ciphertext. Callers cannot tell the cases apart.
	DecryptString(ciphertext string, associatedData []byte) (string, error)
}

// CipherProvider hands out the two field ciphers the system uses.
//
// Member identities and comments are keyed by the service master secret: the
// server must open them with no client credential present (access-code login,
// result assembly). Evaluation title and the manager-token wrap are keyed by
// the manager token itself, so the server alone can never read them — only a
// caller holding the capability can.
type CipherProvider interface {
	Master() FieldCipher
	ForToken(managerToken string) (FieldCipher, error)
}
