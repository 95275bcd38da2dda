package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerloop/api/internal/core/domain"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func seedEvaluation(t *testing.T, env *testEnv) (uuid.UUID, string) {
	t.Helper()
	eval, token, err := env.evaluations.Create(context.Background(), "manager@example.com", "Q3 Retro")
	require.NoError(t, err)
	return eval.ID, token
}

func seedRoster(t *testing.T, env *testEnv, evalID uuid.UUID, token string, names ...string) []*domain.Member {
	t.Helper()
	inputs := make([]MemberInput, len(names))
	for i, name := range names {
		inputs[i] = MemberInput{Name: name, Email: name + "@example.com"}
	}
	members, err := env.members.AddMembers(context.Background(), evalID, token, inputs)
	require.NoError(t, err)
	return members
}

func TestMemberService_AddMembers(t *testing.T) {
	env := newTestEnv(t)
	evalID, token := seedEvaluation(t, env)

	members := seedRoster(t, env, evalID, token, "ada", "grace", "mary")
	require.Len(t, members, 3)

	seen := make(map[string]bool)
	for _, m := range members {
		assert.Equal(t, evalID, m.EvaluationID)
		assert.Equal(t, 2, m.Total, "each member reviews everyone but themselves")
		assert.Equal(t, 0, m.Completed)
		assert.Regexp(t, sixDigits, m.AccessCode)
		assert.False(t, seen[m.AccessCode], "access codes must be unique")
		seen[m.AccessCode] = true
	}
}

func TestMemberService_AddMembers_TooFew(t *testing.T) {
	env := newTestEnv(t)
	evalID, token := seedEvaluation(t, env)

	_, err := env.members.AddMembers(context.Background(), evalID, token,
		[]MemberInput{{Name: "ada", Email: "ada@example.com"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMemberService_AddMembers_WrongToken(t *testing.T) {
	env := newTestEnv(t)
	evalID, _ := seedEvaluation(t, env)

	_, err := env.members.AddMembers(context.Background(), evalID, uuid.NewString(),
		[]MemberInput{
			{Name: "ada", Email: "ada@example.com"},
			{Name: "grace", Email: "grace@example.com"},
		})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMemberService_GetMembers_DecryptsRoster(t *testing.T) {
	env := newTestEnv(t)
	evalID, token := seedEvaluation(t, env)
	seedRoster(t, env, evalID, token, "ada", "grace")

	roster, err := env.members.GetMembers(context.Background(), evalID, token)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	names := []string{roster[0].Name, roster[1].Name}
	assert.ElementsMatch(t, []string{"ada", "grace"}, names)
	assert.Equal(t, "ada@example.com", rosterByName(roster, "ada").Email)
	// Plaintext access codes only exist at creation time.
	assert.Empty(t, roster[0].AccessCode)
}

func rosterByName(roster []*domain.Member, name string) *domain.Member {
	for _, m := range roster {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func TestMemberService_AccessCodeLogin(t *testing.T) {
	env := newTestEnv(t)
	evalID, token := seedEvaluation(t, env)
	members := seedRoster(t, env, evalID, token, "ada", "grace", "mary")

	result, err := env.members.AccessCodeLogin(context.Background(), members[0].AccessCode)
	require.NoError(t, err)

	assert.Equal(t, evalID, result.EvaluationID)
	assert.Equal(t, members[0].ID, result.CurrentMemberID)
	assert.Len(t, result.Members, 3, "login returns the full decrypted roster")

	session, err := env.tokens.VerifySession(result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, members[0].ID, session.MemberID)
	assert.Equal(t, evalID, session.EvaluationID)
}

func TestMemberService_AccessCodeLogin_Unknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.members.AccessCodeLogin(context.Background(), "123456")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemberService_AccessCodeLogin_Malformed(t *testing.T) {
	env := newTestEnv(t)

	for _, code := range []string{"", "12345", "1234567", "12a456", "12345 "} {
		_, err := env.members.AccessCodeLogin(context.Background(), code)
		assert.ErrorIs(t, err, domain.ErrValidation, "code %q", code)
	}
}

func TestMemberService_TouchLastAccess(t *testing.T) {
	env := newTestEnv(t)
	evalID, token := seedEvaluation(t, env)
	members := seedRoster(t, env, evalID, token, "ada", "grace")
	session := &domain.SessionClaims{MemberID: members[0].ID, EvaluationID: evalID}

	require.NoError(t, env.members.TouchLastAccess(context.Background(), session, members[0].ID))

	// A session cannot touch somebody else's record.
	err := env.members.TouchLastAccess(context.Background(), session, members[1].ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
