package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"peerloop/api/internal/core/domain"
)

// AuditRepo implements domain.AuditRepository over sqlx. The trail is
// append-only bookkeeping, so struct scanning beats hand-written Scan calls.
type AuditRepo struct {
	db *sqlx.DB
}

func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Record(ctx context.Context, event *domain.AuditEvent) error {
	const query = `
		INSERT INTO audit_events (evaluation_id, action, actor)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		event.EvaluationID, event.Action, event.Actor,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByEvaluation(
	ctx context.Context, evaluationID uuid.UUID, limit int,
) ([]domain.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	const query = `
		SELECT id, evaluation_id, action, actor, created_at
		FROM audit_events
		WHERE evaluation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	events := []domain.AuditEvent{}
	if err := r.db.SelectContext(ctx, &events, query, evaluationID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
