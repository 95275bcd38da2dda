package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit action names. Events intentionally carry no PII: member identities are
// referenced by opaque UUID only, never by name or email.
const (
	AuditEvaluationCreated   = "evaluation.created"
	AuditEvaluationActivated = "evaluation.activated"
	AuditEvaluationCompleted = "evaluation.completed"
	AuditMembersAdded        = "members.added"
	AuditResponseSubmitted   = "response.submitted"
	AuditResultsViewed       = "results.viewed"
	AuditMemberLogin         = "member.login"
)

// Actor kinds recorded alongside audit events.
const (
	ActorManager = "manager"
	ActorMember  = "member"
)

// AuditEvent is one append-only trail entry for an evaluation.
type AuditEvent struct {
	ID           int64     `db:"id" json:"id"`
	EvaluationID uuid.UUID `db:"evaluation_id" json:"evaluation_id"`
	Action       string    `db:"action" json:"action"`
	Actor        string    `db:"actor" json:"actor"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditRepository defines the append-only trail contract.
type AuditRepository interface {
	Record(ctx context.Context, event *AuditEvent) error
	ListByEvaluation(ctx context.Context, evaluationID uuid.UUID, limit int) ([]AuditEvent, error)
}
