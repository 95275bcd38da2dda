package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
)

// ResultsService assembles the consolidated results a manager reviews.
type ResultsService struct {
	responses domain.ResponseRepository
	members   *MemberService
	audit     domain.AuditRepository
	ciphers   domain.CipherProvider
	gate      *ManagerGate
	logger    *slog.Logger
}

func NewResultsService(
	responses domain.ResponseRepository,
	members *MemberService,
	audit domain.AuditRepository,
	ciphers domain.CipherProvider,
	gate *ManagerGate,
	logger *slog.Logger,
) *ResultsService {
	return &ResultsService{
		responses: responses,
		members:   members,
		audit:     audit,
		ciphers:   ciphers,
		gate:      gate,
		logger:    logger,
	}
}

// GetResults aggregates, per member, every response naming them as the
// evaluated party: per-question averages, an overall mean and the decrypted
// comments. A member nobody has rated yet gets all-zero averages.
//
// Decryption failures degrade, never fail: a comment that will not open is
// returned as its raw ciphertext and logged, so one corrupt row cannot take
// down the whole results view.
func (s *ResultsService) GetResults(
	ctx context.Context, evaluationID uuid.UUID, managerToken string,
) ([]domain.MemberResult, error) {
	eval, err := s.gate.Authorize(ctx, evaluationID, managerToken)
	if err != nil {
		return nil, err
	}

	roster, err := s.members.decryptedRoster(ctx, eval.ID)
	if err != nil {
		return nil, err
	}

	master := s.ciphers.Master()
	aad := []byte(eval.ID.String())

	results := make([]domain.MemberResult, 0, len(roster))
	for _, member := range roster {
		responses, ciphers, err := s.responses.ListByEvaluated(ctx, eval.ID, member.ID)
		if err != nil {
			return nil, err
		}

		ratings := make([]domain.Ratings, len(responses))
		comments := make([]domain.ResponseComments, 0, len(responses))
		for i, resp := range responses {
			ratings[i] = resp.Ratings
			if c, ok := s.decryptComments(master, ciphers[i], aad, resp.ID); ok {
				comments = append(comments, c)
			}
		}

		results = append(results, domain.MemberResult{
			Member:        member,
			Averages:      domain.AggregateRatings(ratings),
			Comments:      comments,
			ResponseCount: len(responses),
		})
	}

	recordAudit(ctx, s.audit, s.logger, eval.ID, domain.AuditResultsViewed, domain.ActorManager)

	return results, nil
}

// decryptComments opens one response's comment pair. Responses with no
// comments at all are skipped; a field that fails decryption is substituted
// with its ciphertext.
func (s *ResultsService) decryptComments(
	cipher domain.FieldCipher, ciphers *domain.CommentCiphers, aad []byte, responseID uuid.UUID,
) (domain.ResponseComments, bool) {
	if ciphers.PositiveCipher == "" && ciphers.ImprovementCipher == "" {
		return domain.ResponseComments{}, false
	}

	var out domain.ResponseComments
	out.Positive = s.decryptOne(cipher, ciphers.PositiveCipher, aad, responseID, "positive")
	out.Improvement = s.decryptOne(cipher, ciphers.ImprovementCipher, aad, responseID, "improvement")
	return out, true
}

func (s *ResultsService) decryptOne(
	cipher domain.FieldCipher, ciphertext string, aad []byte, responseID uuid.UUID, field string,
) string {
	if ciphertext == "" {
		return ""
	}
	plaintext, err := cipher.DecryptString(ciphertext, aad)
	if err != nil {
		s.logger.Error("comment decryption failed",
			slog.String("response_id", responseID.String()),
			slog.String("field", field),
		)
		return ciphertext
	}
	return plaintext
}
