package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
)

// recordAudit appends a trail entry best-effort: a broken audit sink is
// logged, never surfaced as a failed request.
func recordAudit(
	ctx context.Context,
	audit domain.AuditRepository,
	logger *slog.Logger,
	evaluationID uuid.UUID,
	action, actor string,
) {
	event := &domain.AuditEvent{EvaluationID: evaluationID, Action: action, Actor: actor}
	if err := audit.Record(ctx, event); err != nil {
		logger.Warn("audit record failed",
			slog.String("action", action),
			slog.String("evaluation_id", evaluationID.String()),
			slog.String("error", err.Error()),
		)
	}
}
