package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerloop/api/internal/infrastructure/crypto"
)

func TestGenerateAccessCode_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateAccessCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		assert.GreaterOrEqual(t, code, "100000", "no leading-zero ambiguity")
	}
}

func TestIssueAccessCode_SkipsBatchCollisions(t *testing.T) {
	members := newMemMembers()
	batch := make(map[string]bool)

	code, codeHash, err := issueAccessCode(context.Background(), members, batch)
	require.NoError(t, err)
	assert.Equal(t, crypto.HashAccessCode(code), codeHash)
	assert.True(t, batch[codeHash], "issued hash is reserved for the rest of the batch")

	code2, hash2, err := issueAccessCode(context.Background(), members, batch)
	require.NoError(t, err)
	assert.NotEqual(t, code, code2)
	assert.NotEqual(t, codeHash, hash2)
}

// saturatedMembers reports every hash as taken, modeling a full code space.
type saturatedMembers struct {
	*memMembers
}

func (saturatedMembers) AccessCodeHashExists(context.Context, string) (bool, error) {
	return true, nil
}

func TestIssueAccessCode_GivesUpWhenSpaceExhausted(t *testing.T) {
	_, _, err := issueAccessCode(context.Background(), saturatedMembers{newMemMembers()}, map[string]bool{})
	assert.Error(t, err)
}
