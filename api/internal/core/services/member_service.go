package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/infrastructure/crypto"
)

var accessCodePattern = regexp.MustCompile(`^\d{6}$`)

// MemberInput is one roster entry supplied by the manager.
type MemberInput struct {
	Name  string
	Email string
}

// LoginResult is everything a member needs after access-code login: who they
// are, which campaign they are in, who they still have to review, and a
// session token for the submit endpoints.
type LoginResult struct {
	EvaluationID    uuid.UUID        `json:"evaluation_id"`
	CurrentMemberID uuid.UUID        `json:"current_member_id"`
	Members         []*domain.Member `json:"members"`
	SessionToken    string           `json:"session_token"`
}

// MemberService owns roster management and member authentication.
type MemberService struct {
	members domain.MemberRepository
	audit   domain.AuditRepository
	ciphers domain.CipherProvider
	gate    *ManagerGate
	tokens  *TokenService
	logger  *slog.Logger
}

func NewMemberService(
	members domain.MemberRepository,
	audit domain.AuditRepository,
	ciphers domain.CipherProvider,
	gate *ManagerGate,
	tokens *TokenService,
	logger *slog.Logger,
) *MemberService {
	return &MemberService{
		members: members,
		audit:   audit,
		ciphers: ciphers,
		gate:    gate,
		tokens:  tokens,
		logger:  logger,
	}
}

// AddMembers creates the roster for an evaluation in one atomic batch. Every
// member gets total = n-1 peers to review and a fresh 6-digit access code.
// The returned entities carry the plaintext codes — the single time they are
// ever visible; only their hashes are stored.
func (s *MemberService) AddMembers(
	ctx context.Context, evaluationID uuid.UUID, managerToken string, inputs []MemberInput,
) ([]*domain.Member, error) {
	eval, err := s.gate.Authorize(ctx, evaluationID, managerToken)
	if err != nil {
		return nil, err
	}
	if len(inputs) < 2 {
		return nil, fmt.Errorf("%w: an evaluation needs at least 2 members", domain.ErrValidation)
	}

	master := s.ciphers.Master()
	aad := []byte(eval.ID.String())
	total := len(inputs) - 1

	members := make([]*domain.Member, 0, len(inputs))
	nameCiphers := make([]string, 0, len(inputs))
	emailCiphers := make([]string, 0, len(inputs))
	issued := make(map[string]bool, len(inputs))

	for _, in := range inputs {
		m, err := domain.NewMember(eval.ID, in.Name, in.Email)
		if err != nil {
			return nil, err
		}
		m.Total = total
		m.EmailHash = crypto.HashEmail(m.Email)

		code, codeHash, err := issueAccessCode(ctx, s.members, issued)
		if err != nil {
			return nil, err
		}
		m.AccessCode = code
		m.AccessCodeHash = codeHash

		nameCipher, err := master.EncryptString(m.Name, aad)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt member name: %w", err)
		}
		emailCipher, err := master.EncryptString(m.Email, aad)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt member email: %w", err)
		}

		members = append(members, m)
		nameCiphers = append(nameCiphers, nameCipher)
		emailCiphers = append(emailCiphers, emailCipher)
	}

	if err := s.members.CreateBatch(ctx, members, nameCiphers, emailCiphers); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, eval.ID, domain.AuditMembersAdded, domain.ActorManager)
	s.logger.Info("members added",
		slog.String("evaluation_id", eval.ID.String()),
		slog.Int("count", len(members)),
	)

	return members, nil
}

// GetMembers returns the decrypted roster for the manager.
func (s *MemberService) GetMembers(
	ctx context.Context, evaluationID uuid.UUID, managerToken string,
) ([]*domain.Member, error) {
	eval, err := s.gate.Authorize(ctx, evaluationID, managerToken)
	if err != nil {
		return nil, err
	}
	return s.decryptedRoster(ctx, eval.ID)
}

// AccessCodeLogin exchanges a 6-digit code for the member's identity, their
// co-members and a session token. Unknown codes are a plain not-found; the
// route-level rate limit is what keeps the code space un-enumerable.
func (s *MemberService) AccessCodeLogin(ctx context.Context, code string) (*LoginResult, error) {
	if !accessCodePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: access code must be 6 digits", domain.ErrValidation)
	}

	member, _, err := s.members.GetByAccessCodeHash(ctx, crypto.HashAccessCode(code))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.members.UpdateLastAccess(ctx, member.ID, now); err != nil {
		// Login still succeeds; the timestamp is bookkeeping.
		s.logger.Warn("last access update failed",
			slog.String("member_id", member.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	roster, err := s.decryptedRoster(ctx, member.EvaluationID)
	if err != nil {
		return nil, err
	}

	session, err := s.tokens.MintSession(member.ID, member.EvaluationID)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, member.EvaluationID, domain.AuditMemberLogin, domain.ActorMember)

	return &LoginResult{
		EvaluationID:    member.EvaluationID,
		CurrentMemberID: member.ID,
		Members:         roster,
		SessionToken:    session,
	}, nil
}

// TouchLastAccess updates the member's last access timestamp. The session
// subject must be the member being touched.
func (s *MemberService) TouchLastAccess(
	ctx context.Context, session *domain.SessionClaims, memberID uuid.UUID,
) error {
	if session.MemberID != memberID {
		return domain.ErrUnauthorized
	}
	return s.members.UpdateLastAccess(ctx, memberID, time.Now().UTC())
}

// decryptedRoster lists an evaluation's members with names and emails opened
// under the master key. A field that fails decryption keeps its raw
// ciphertext so one corrupt row never blanks the whole roster.
func (s *MemberService) decryptedRoster(
	ctx context.Context, evaluationID uuid.UUID,
) ([]*domain.Member, error) {
	members, ciphers, err := s.members.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	master := s.ciphers.Master()
	aad := []byte(evaluationID.String())
	for i, m := range members {
		m.Name = s.decryptTolerant(master, ciphers[i].NameCipher, aad, m.ID, "name")
		m.Email = s.decryptTolerant(master, ciphers[i].EmailCipher, aad, m.ID, "email")
	}
	return members, nil
}

func (s *MemberService) decryptTolerant(
	cipher domain.FieldCipher, ciphertext string, aad []byte, memberID uuid.UUID, field string,
) string {
	plaintext, err := cipher.DecryptString(ciphertext, aad)
	if err != nil {
		s.logger.Error("member field decryption failed",
			slog.String("member_id", memberID.String()),
			slog.String("field", field),
		)
		return ciphertext
	}
	return plaintext
}
