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

// EvaluationRepo implements domain.EvaluationRepository for PostgreSQL.
type EvaluationRepo struct {
	pool *pgxpool.Pool
}

func NewEvaluationRepo(pool *pgxpool.Pool) *EvaluationRepo {
	return &EvaluationRepo{pool: pool}
}

// Create inserts the evaluation and scans the generated ID and timestamp back
// into the entity. Only hashed and encrypted columns cross this boundary.
func (r *EvaluationRepo) Create(
	ctx context.Context, eval *domain.Evaluation, titleCipher, tokenCipher string,
) error {
	const query = `
		INSERT INTO evaluations (creator_email_hash, title_cipher, token_cipher, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		eval.CreatorEmailHash,
		titleCipher,
		tokenCipher,
		eval.Status,
	).Scan(&eval.ID, &eval.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	return nil
}

// GetByID returns the evaluation without decrypting anything. Title stays an
// empty placeholder; the ciphers are handed back so a caller holding the
// manager token can open them.
func (r *EvaluationRepo) GetByID(
	ctx context.Context, id uuid.UUID,
) (*domain.Evaluation, *domain.EvaluationCiphers, error) {
	const query = `
		SELECT id, creator_email_hash, title_cipher, token_cipher, status, created_at
		FROM evaluations
		WHERE id = $1
	`

	var eval domain.Evaluation
	var ciphers domain.EvaluationCiphers

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&eval.ID,
		&eval.CreatorEmailHash,
		&ciphers.TitleCipher,
		&ciphers.TokenCipher,
		&eval.Status,
		&eval.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to query evaluation: %w", err)
	}

	return &eval, &ciphers, nil
}

// UpdateStatus performs a compare-and-set on the status column. Zero rows
// affected means the evaluation is missing or no longer in the expected state;
// both surface as an invalid transition so racing managers lose cleanly.
func (r *EvaluationRepo) UpdateStatus(
	ctx context.Context, id uuid.UUID, from, to domain.EvaluationStatus,
) error {
	const query = `
		UPDATE evaluations SET status = $3
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update evaluation status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected status %q", domain.ErrInvalidTransition, from)
	}

	return nil
}
