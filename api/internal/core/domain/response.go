package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ratings holds the four review dimensions, each an integer from 1 to 5.
type Ratings struct {
	Question1 int `json:"question_1"`
	Question2 int `json:"question_2"`
	Question3 int `json:"question_3"`
	Question4 int `json:"question_4"`
}

func (r Ratings) validate() error {
	for i, v := range [...]int{r.Question1, r.Question2, r.Question3, r.Question4} {
		if v < 1 || v > 5 {
			return fmt.Errorf("%w: question_%d must be between 1 and 5, got %d", ErrValidation, i+1, v)
		}
	}
	return nil
}

// Response is one anonymous rating of one member by another.
//
// Comments are plaintext in memory; at rest they are encrypted under the
// service master key and decrypted lazily when results are assembled.
type Response struct {
	ID                 uuid.UUID `json:"id"`
	EvaluationID       uuid.UUID `json:"evaluation_id"`
	EvaluatorID        uuid.UUID `json:"evaluator_id"`
	EvaluatedID        uuid.UUID `json:"evaluated_id"`
	Ratings            Ratings   `json:"ratings"`
	PositiveComment    string    `json:"positive_comment,omitempty"`
	ImprovementComment string    `json:"improvement_comment,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewResponse constructs a response and enforces its invariants, most
// importantly that nobody evaluates themselves.
func NewResponse(
	evaluationID, evaluatorID, evaluatedID uuid.UUID,
	ratings Ratings,
	positive, improvement string,
) (*Response, error) {
	if evaluationID == uuid.Nil {
		return nil, fmt.Errorf("%w: evaluation id is required", ErrValidation)
	}
	if evaluatorID == uuid.Nil || evaluatedID == uuid.Nil {
		return nil, fmt.Errorf("%w: evaluator and evaluated ids are required", ErrValidation)
	}
	if evaluatorID == evaluatedID {
		return nil, fmt.Errorf("%w: self-evaluation is not allowed", ErrValidation)
	}
	if err := ratings.validate(); err != nil {
		return nil, err
	}

	return &Response{
		EvaluationID:       evaluationID,
		EvaluatorID:        evaluatorID,
		EvaluatedID:        evaluatedID,
		Ratings:            ratings,
		PositiveComment:    positive,
		ImprovementComment: improvement,
	}, nil
}

// ResponseRepository defines the persistence contract for responses.
type ResponseRepository interface {
	// Save inserts the response and bumps the evaluator's completed counter in
	// one transaction. A second submission for the same
	// (evaluation, evaluator, evaluated) triple returns ErrDuplicateResponse and
	// leaves the counter untouched, even when two submissions race.
	Save(ctx context.Context, resp *Response, positiveCipher, improvementCipher string) error

	// ListByEvaluated returns all responses naming the member as the evaluated
	// party, with comments still encrypted.
	ListByEvaluated(ctx context.Context, evaluationID, evaluatedID uuid.UUID) ([]*Response, []*CommentCiphers, error)

	CountByEvaluation(ctx context.Context, evaluationID uuid.UUID) (int, error)
}

// CommentCiphers carries the encrypted-at-rest free-text columns.
type CommentCiphers struct {
	PositiveCipher    string
	ImprovementCipher string
}
