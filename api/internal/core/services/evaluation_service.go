package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/infrastructure/crypto"
)

// EvaluationService owns the campaign lifecycle: creation, the forward-only
// status state machine, and the manager-facing audit trail.
type EvaluationService struct {
	evaluations domain.EvaluationRepository
	audit       domain.AuditRepository
	ciphers     domain.CipherProvider
	gate        *ManagerGate
	logger      *slog.Logger
}

func NewEvaluationService(
	evaluations domain.EvaluationRepository,
	audit domain.AuditRepository,
	ciphers domain.CipherProvider,
	gate *ManagerGate,
	logger *slog.Logger,
) *EvaluationService {
	return &EvaluationService{
		evaluations: evaluations,
		audit:       audit,
		ciphers:     ciphers,
		gate:        gate,
		logger:      logger,
	}
}

// Create validates the inputs, mints the manager token and persists the
// evaluation with every sensitive field hashed or encrypted. The returned
// token is the manager's only durable proof of ownership — it is never stored
// in recoverable form, so this is the one time it is ever emitted.
func (s *EvaluationService) Create(
	ctx context.Context, creatorEmail, title string,
) (*domain.Evaluation, string, error) {
	eval, err := domain.NewEvaluation(creatorEmail, title)
	if err != nil {
		return nil, "", err
	}

	managerToken := uuid.NewString()
	eval.CreatorEmailHash = crypto.HashEmail(eval.CreatorEmail)

	cipher, err := s.ciphers.ForToken(managerToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to derive token cipher: %w", err)
	}

	aad := []byte(eval.CreatorEmailHash)
	titleCipher, err := cipher.EncryptString(eval.Title, aad)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encrypt title: %w", err)
	}
	// The self-referential wrap: the token encrypted under its own digest.
	tokenCipher, err := cipher.EncryptString(managerToken, aad)
	if err != nil {
		return nil, "", fmt.Errorf("failed to wrap manager token: %w", err)
	}

	if err := s.evaluations.Create(ctx, eval, titleCipher, tokenCipher); err != nil {
		return nil, "", err
	}

	recordAudit(ctx, s.audit, s.logger, eval.ID, domain.AuditEvaluationCreated, domain.ActorManager)
	s.logger.Info("evaluation created", slog.String("evaluation_id", eval.ID.String()))

	return eval, managerToken, nil
}

// Activate drives draft -> active.
func (s *EvaluationService) Activate(ctx context.Context, evaluationID uuid.UUID, managerToken string) (*domain.Evaluation, error) {
	return s.transition(ctx, evaluationID, managerToken, domain.AuditEvaluationActivated,
		func(e *domain.Evaluation) error { return e.Activate() })
}

// Complete drives active -> completed.
func (s *EvaluationService) Complete(ctx context.Context, evaluationID uuid.UUID, managerToken string) (*domain.Evaluation, error) {
	return s.transition(ctx, evaluationID, managerToken, domain.AuditEvaluationCompleted,
		func(e *domain.Evaluation) error { return e.Complete() })
}

func (s *EvaluationService) transition(
	ctx context.Context,
	evaluationID uuid.UUID,
	managerToken string,
	auditAction string,
	step func(*domain.Evaluation) error,
) (*domain.Evaluation, error) {
	eval, err := s.gate.Authorize(ctx, evaluationID, managerToken)
	if err != nil {
		return nil, err
	}

	from := eval.Status
	// The entity rejects non-adjacent jumps; the repository's compare-and-set
	// then closes the race against a concurrent transition.
	if err := step(eval); err != nil {
		return nil, err
	}
	if err := s.evaluations.UpdateStatus(ctx, evaluationID, from, eval.Status); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, evaluationID, auditAction, domain.ActorManager)
	return eval, nil
}

// AuditTrail returns the PII-free event log for a campaign the caller owns.
func (s *EvaluationService) AuditTrail(
	ctx context.Context, evaluationID uuid.UUID, managerToken string, limit int,
) ([]domain.AuditEvent, error) {
	if _, err := s.gate.Authorize(ctx, evaluationID, managerToken); err != nil {
		return nil, err
	}
	return s.audit.ListByEvaluation(ctx, evaluationID, limit)
}
