package domain

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Member is one participant in an evaluation campaign.
//
// Name and Email are plaintext only in memory; at rest they are AES-GCM
// ciphertexts keyed by the service master key, with the email additionally
// hashed for lookup. AccessCode holds the plaintext 6-digit credential only
// between generation and the single response that shows it to the manager.
type Member struct {
	ID             uuid.UUID  `json:"id"`
	EvaluationID   uuid.UUID  `json:"evaluation_id"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	EmailHash      string     `json:"-"`
	AccessCode     string     `json:"access_code,omitempty"` // transient, never persisted
	AccessCodeHash string     `json:"-"`
	Completed      int        `json:"completed_evaluations"`
	Total          int        `json:"total_evaluations"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessDate *time.Time `json:"last_access_date,omitempty"`
}

// NewMember constructs a member with validated identity fields. Completed and
// Total start at zero; AddMembers fixes Total once the roster size is known.
func NewMember(evaluationID uuid.UUID, name, email string) (*Member, error) {
	if evaluationID == uuid.Nil {
		return nil, fmt.Errorf("%w: evaluation id is required", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: member name is required", ErrValidation)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: member email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: member email is not a valid address", ErrValidation)
	}

	return &Member{
		EvaluationID: evaluationID,
		Name:         name,
		Email:        email,
	}, nil
}

// RecordCompletion bumps the completed counter, holding 0 <= completed <= total.
// The storage layer enforces the same cap in SQL; this keeps in-memory copies
// honest when tests or services mutate entities directly.
func (m *Member) RecordCompletion() error {
	if m.Completed >= m.Total {
		return fmt.Errorf("%w: completed evaluations cannot exceed total (%d)", ErrValidation, m.Total)
	}
	m.Completed++
	return nil
}

// MemberRepository defines the persistence contract for members.
type MemberRepository interface {
	// CreateBatch inserts the full roster in a single transaction.
	// Either every member is persisted or none are.
	CreateBatch(ctx context.Context, members []*Member, nameCiphers, emailCiphers []string) error

	GetByID(ctx context.Context, id uuid.UUID) (*Member, *MemberCiphers, error)
	ListByEvaluation(ctx context.Context, evaluationID uuid.UUID) ([]*Member, []*MemberCiphers, error)
	GetByAccessCodeHash(ctx context.Context, codeHash string) (*Member, *MemberCiphers, error)

	// AccessCodeHashExists supports collision checking at code generation time.
	// Lookup by code is global, so uniqueness must be global too.
	AccessCodeHashExists(ctx context.Context, codeHash string) (bool, error)

	UpdateLastAccess(ctx context.Context, id uuid.UUID, at time.Time) error
}

// MemberCiphers carries the encrypted-at-rest identity columns.
type MemberCiphers struct {
	NameCipher  string
	EmailCipher string
}
