package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"peerloop/api/internal/core/domain"
)

// ResponseRepo implements domain.ResponseRepository for PostgreSQL.
type ResponseRepo struct {
	pool *pgxpool.Pool
}

func NewResponseRepo(pool *pgxpool.Pool) *ResponseRepo {
	return &ResponseRepo{pool: pool}
}

// Save inserts the response and bumps the evaluator's completed counter in a
// single transaction. The unique index on (evaluation_id, evaluator_id,
// evaluated_id) is the duplicate guard: there is no separate existence check
// to race against, and a losing concurrent submission gets
// ErrDuplicateResponse with no counter side effect.
func (r *ResponseRepo) Save(
	ctx context.Context, resp *domain.Response, positiveCipher, improvementCipher string,
) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin response save: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO responses
			(evaluation_id, evaluator_id, evaluated_id,
			 question_1, question_2, question_3, question_4,
			 positive_cipher, improvement_cipher)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (evaluation_id, evaluator_id, evaluated_id) DO NOTHING
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, insert,
		resp.EvaluationID,
		resp.EvaluatorID,
		resp.EvaluatedID,
		resp.Ratings.Question1,
		resp.Ratings.Question2,
		resp.Ratings.Question3,
		resp.Ratings.Question4,
		nullable(positiveCipher),
		nullable(improvementCipher),
	).Scan(&resp.ID, &resp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// DO NOTHING swallowed the insert: the pair already exists.
			return domain.ErrDuplicateResponse
		}
		return fmt.Errorf("failed to insert response: %w", err)
	}

	// Capped increment: the WHERE clause keeps completed <= total even if the
	// roster was mutated out from under us.
	const bump = `
		UPDATE team_members
		SET completed_evaluations = completed_evaluations + 1
		WHERE id = $1 AND completed_evaluations < total_evaluations
	`

	tag, err := tx.Exec(ctx, bump, resp.EvaluatorID)
	if err != nil {
		return fmt.Errorf("failed to increment completed counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: evaluator completed counter already at total", domain.ErrValidation)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit response save: %w", err)
	}
	return nil
}

// ListByEvaluated returns every response naming the member as evaluated.
// Comments come back encrypted; decryption is the caller's concern.
func (r *ResponseRepo) ListByEvaluated(
	ctx context.Context, evaluationID, evaluatedID uuid.UUID,
) ([]*domain.Response, []*domain.CommentCiphers, error) {
	const query = `
		SELECT id, evaluation_id, evaluator_id, evaluated_id,
		       question_1, question_2, question_3, question_4,
		       COALESCE(positive_cipher, ''), COALESCE(improvement_cipher, ''),
		       created_at
		FROM responses
		WHERE evaluation_id = $1 AND evaluated_id = $2
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, evaluationID, evaluatedID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []*domain.Response
	var ciphers []*domain.CommentCiphers
	for rows.Next() {
		var resp domain.Response
		var c domain.CommentCiphers
		err := rows.Scan(
			&resp.ID,
			&resp.EvaluationID,
			&resp.EvaluatorID,
			&resp.EvaluatedID,
			&resp.Ratings.Question1,
			&resp.Ratings.Question2,
			&resp.Ratings.Question3,
			&resp.Ratings.Question4,
			&c.PositiveCipher,
			&c.ImprovementCipher,
			&resp.CreatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, &resp)
		ciphers = append(ciphers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("response listing interrupted: %w", err)
	}

	return responses, ciphers, nil
}

func (r *ResponseRepo) CountByEvaluation(ctx context.Context, evaluationID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM responses WHERE evaluation_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, evaluationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

// nullable maps an absent comment to NULL rather than storing empty ciphertext.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
