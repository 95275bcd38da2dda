package domain

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EvaluationStatus string

const (
	StatusDraft     EvaluationStatus = "draft"
	StatusActive    EvaluationStatus = "active"
	StatusCompleted EvaluationStatus = "completed"
)

// Evaluation is a single 360° review campaign.
//
// At rest only the creator email hash, the encrypted title and the encrypted
// manager-token wrap are stored. In memory CreatorEmail and Title hold
// plaintext when the caller could supply the manager token; read paths that
// lack the token reconstruct the entity with empty strings for both — the ID
// and Status are still meaningful.
type Evaluation struct {
	ID               uuid.UUID        `json:"id"`
	CreatorEmail     string           `json:"creator_email,omitempty"` // transient, never persisted
	CreatorEmailHash string           `json:"-"`
	Title            string           `json:"title,omitempty"`
	Status           EvaluationStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewEvaluation constructs a draft evaluation and enforces its invariants.
func NewEvaluation(creatorEmail, title string) (*Evaluation, error) {
	creatorEmail = strings.TrimSpace(creatorEmail)
	if creatorEmail == "" {
		return nil, fmt.Errorf("%w: creator email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(creatorEmail); err != nil {
		return nil, fmt.Errorf("%w: creator email is not a valid address", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	return &Evaluation{
		CreatorEmail: creatorEmail,
		Title:        title,
		Status:       StatusDraft,
	}, nil
}

// Activate moves the campaign from draft to active. The state machine is
// strictly forward; any other source state is rejected.
func (e *Evaluation) Activate() error {
	if e.Status != StatusDraft {
		return fmt.Errorf("%w: cannot activate from %q", ErrInvalidTransition, e.Status)
	}
	e.Status = StatusActive
	return nil
}

// Complete moves the campaign from active to completed.
func (e *Evaluation) Complete() error {
	if e.Status != StatusActive {
		return fmt.Errorf("%w: cannot complete from %q", ErrInvalidTransition, e.Status)
	}
	e.Status = StatusCompleted
	return nil
}

// EvaluationRepository defines the persistence contract for evaluations.
type EvaluationRepository interface {
	// Create persists a new evaluation with already-hashed and already-encrypted
	// fields and assigns the store-generated ID and timestamp to the entity.
	Create(ctx context.Context, eval *Evaluation, titleCipher, tokenCipher string) error

	// GetByID returns the evaluation without decrypting anything: Title is an
	// empty placeholder, TokenCipher is handed back for capability checks.
	GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, *EvaluationCiphers, error)

	// UpdateStatus performs a compare-and-set from the expected current status.
	// Zero rows affected means a lost race or an illegal jump; the caller gets
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to EvaluationStatus) error
}

// EvaluationCiphers carries the encrypted-at-rest columns that only a caller
// holding the manager token can open.
type EvaluationCiphers struct {
	TitleCipher string
	TokenCipher string
}
