package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/infrastructure/crypto"
)

// accessCodeSpace is the number of valid 6-digit codes (100000..999999).
var accessCodeSpace = big.NewInt(900000)

const accessCodeAttempts = 10

// generateAccessCode draws a uniformly random 6-digit code from crypto/rand.
func generateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, accessCodeSpace)
	if err != nil {
		return "", fmt.Errorf("access code entropy failure: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// issueAccessCode generates a code whose hash collides neither with any code
// already persisted nor with one issued earlier in the same batch. Lookup by
// code is global, so uniqueness has to be global too.
func issueAccessCode(
	ctx context.Context, members domain.MemberRepository, batch map[string]bool,
) (code, codeHash string, err error) {
	for attempt := 0; attempt < accessCodeAttempts; attempt++ {
		code, err = generateAccessCode()
		if err != nil {
			return "", "", err
		}
		codeHash = crypto.HashAccessCode(code)

		if batch[codeHash] {
			continue
		}
		exists, err := members.AccessCodeHashExists(ctx, codeHash)
		if err != nil {
			return "", "", err
		}
		if !exists {
			batch[codeHash] = true
			return code, codeHash, nil
		}
	}
	return "", "", fmt.Errorf("could not find a free access code after %d attempts", accessCodeAttempts)
}
