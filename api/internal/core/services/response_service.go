package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/telemetry"
)

// SubmitInput is one anonymous rating submission.
type SubmitInput struct {
	EvaluationID       uuid.UUID
	EvaluatorID        uuid.UUID
	EvaluatedID        uuid.UUID
	Ratings            domain.Ratings
	PositiveComment    string
	ImprovementComment string
}

// ResponseService owns response submission.
type ResponseService struct {
	responses domain.ResponseRepository
	members   domain.MemberRepository
	audit     domain.AuditRepository
	ciphers   domain.CipherProvider
	hub       *telemetry.Hub
	logger    *slog.Logger
}

func NewResponseService(
	responses domain.ResponseRepository,
	members domain.MemberRepository,
	audit domain.AuditRepository,
	ciphers domain.CipherProvider,
	hub *telemetry.Hub,
	logger *slog.Logger,
) *ResponseService {
	return &ResponseService{
		responses: responses,
		members:   members,
		audit:     audit,
		ciphers:   ciphers,
		hub:       hub,
		logger:    logger,
	}
}

// Submit validates and persists one response. The session subject must be the
// claimed evaluator, both members must belong to the claimed evaluation, and
// the repository's unique-pair insert rejects duplicates atomically — the
// completed counter only moves when the insert lands.
func (s *ResponseService) Submit(
	ctx context.Context, session *domain.SessionClaims, input SubmitInput,
) (*domain.Response, error) {
	if session.MemberID != input.EvaluatorID {
		return nil, fmt.Errorf("%w: session does not belong to the evaluator", domain.ErrUnauthorized)
	}

	resp, err := domain.NewResponse(
		input.EvaluationID, input.EvaluatorID, input.EvaluatedID,
		input.Ratings, input.PositiveComment, input.ImprovementComment,
	)
	if err != nil {
		return nil, err
	}

	evaluator, _, err := s.members.GetByID(ctx, input.EvaluatorID)
	if err != nil {
		return nil, err
	}
	evaluated, _, err := s.members.GetByID(ctx, input.EvaluatedID)
	if err != nil {
		return nil, err
	}
	if evaluator.EvaluationID != input.EvaluationID || evaluated.EvaluationID != input.EvaluationID {
		return nil, fmt.Errorf("%w: members do not belong to this evaluation", domain.ErrValidation)
	}

	master := s.ciphers.Master()
	aad := []byte(input.EvaluationID.String())

	var positiveCipher, improvementCipher string
	if resp.PositiveComment != "" {
		if positiveCipher, err = master.EncryptString(resp.PositiveComment, aad); err != nil {
			return nil, fmt.Errorf("failed to encrypt comment: %w", err)
		}
	}
	if resp.ImprovementComment != "" {
		if improvementCipher, err = master.EncryptString(resp.ImprovementComment, aad); err != nil {
			return nil, fmt.Errorf("failed to encrypt comment: %w", err)
		}
	}

	if err := s.responses.Save(ctx, resp, positiveCipher, improvementCipher); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, input.EvaluationID, domain.AuditResponseSubmitted, domain.ActorMember)
	s.broadcastProgress(ctx, input.EvaluationID)

	return resp, nil
}

// broadcastProgress pushes a fresh completion snapshot to watching managers.
// Best-effort: a failed count never fails the submission that triggered it.
func (s *ResponseService) broadcastProgress(ctx context.Context, evaluationID uuid.UUID) {
	event, err := s.Progress(ctx, evaluationID)
	if err != nil {
		s.logger.Warn("progress snapshot failed",
			slog.String("evaluation_id", evaluationID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.hub.Broadcast(event)
}

// Progress computes the current completion snapshot: submitted responses
// against the n*(n-1) the full roster will produce.
func (s *ResponseService) Progress(
	ctx context.Context, evaluationID uuid.UUID,
) (telemetry.ProgressEvent, error) {
	submitted, err := s.responses.CountByEvaluation(ctx, evaluationID)
	if err != nil {
		return telemetry.ProgressEvent{}, err
	}
	roster, _, err := s.members.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return telemetry.ProgressEvent{}, err
	}

	n := len(roster)
	return telemetry.ProgressEvent{
		EvaluationID: evaluationID.String(),
		Submitted:    submitted,
		Expected:     n * (n - 1),
	}, nil
}
