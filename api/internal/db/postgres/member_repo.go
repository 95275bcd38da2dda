package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"peerloop/api/internal/core/domain"
)

// MemberRepo implements domain.MemberRepository for PostgreSQL.
type MemberRepo struct {
	pool *pgxpool.Pool
}

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberColumns = `
	id, evaluation_id, email_hash, access_code_hash,
	completed_evaluations, total_evaluations, created_at, last_access_date,
	name_cipher, email_cipher`

// CreateBatch inserts the whole roster inside one transaction. A failure on
// any row rolls back every row, so there is never a half-created team.
func (r *MemberRepo) CreateBatch(
	ctx context.Context, members []*domain.Member, nameCiphers, emailCiphers []string,
) error {
	if len(members) != len(nameCiphers) || len(members) != len(emailCiphers) {
		return fmt.Errorf("cipher slices must match member count")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin member batch: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO team_members
			(evaluation_id, name_cipher, email_cipher, email_hash,
			 access_code_hash, completed_evaluations, total_evaluations)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id, created_at
	`

	for i, m := range members {
		err := tx.QueryRow(ctx, query,
			m.EvaluationID,
			nameCiphers[i],
			emailCiphers[i],
			m.EmailHash,
			m.AccessCodeHash,
			m.Total,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert member %d of %d: %w", i+1, len(members), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit member batch: %w", err)
	}
	return nil
}

func (r *MemberRepo) GetByID(
	ctx context.Context, id uuid.UUID,
) (*domain.Member, *domain.MemberCiphers, error) {
	query := `SELECT` + memberColumns + ` FROM team_members WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *MemberRepo) GetByAccessCodeHash(
	ctx context.Context, codeHash string,
) (*domain.Member, *domain.MemberCiphers, error) {
	query := `SELECT` + memberColumns + ` FROM team_members WHERE access_code_hash = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, codeHash))
}

func (r *MemberRepo) ListByEvaluation(
	ctx context.Context, evaluationID uuid.UUID,
) ([]*domain.Member, []*domain.MemberCiphers, error) {
	query := `SELECT` + memberColumns + ` FROM team_members WHERE evaluation_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, evaluationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*domain.Member
	var ciphers []*domain.MemberCiphers
	for rows.Next() {
		m, c, err := r.scanOne(rows)
		if err != nil {
			return nil, nil, err
		}
		members = append(members, m)
		ciphers = append(ciphers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("member listing interrupted: %w", err)
	}

	return members, ciphers, nil
}

func (r *MemberRepo) AccessCodeHashExists(ctx context.Context, codeHash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM team_members WHERE access_code_hash = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, codeHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check access code: %w", err)
	}
	return exists, nil
}

func (r *MemberRepo) UpdateLastAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE team_members SET last_access_date = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last access: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MemberRepo) scanOne(row pgx.Row) (*domain.Member, *domain.MemberCiphers, error) {
	var m domain.Member
	var c domain.MemberCiphers

	err := row.Scan(
		&m.ID,
		&m.EvaluationID,
		&m.EmailHash,
		&m.AccessCodeHash,
		&m.Completed,
		&m.Total,
		&m.CreatedAt,
		&m.LastAccessDate,
		&c.NameCipher,
		&c.EmailCipher,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to scan member: %w", err)
	}

	return &m, &c, nil
}
