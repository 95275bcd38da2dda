package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/infrastructure/crypto"
	"peerloop/api/internal/telemetry"
)

// In-memory repository fakes honoring the same contracts as the postgres
// implementations: placeholder fields on reads, unique-pair rejection and
// capped counter bumps on response saves.

type evalRow struct {
	eval    domain.Evaluation
	ciphers domain.EvaluationCiphers
}

type memEvaluations struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*evalRow
}

func newMemEvaluations() *memEvaluations {
	return &memEvaluations{rows: make(map[uuid.UUID]*evalRow)}
}

func (r *memEvaluations) Create(
	_ context.Context, eval *domain.Evaluation, titleCipher, tokenCipher string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eval.ID = uuid.New()
	eval.CreatedAt = time.Now().UTC()
	r.rows[eval.ID] = &evalRow{
		eval:    *eval,
		ciphers: domain.EvaluationCiphers{TitleCipher: titleCipher, TokenCipher: tokenCipher},
	}
	return nil
}

func (r *memEvaluations) GetByID(
	_ context.Context, id uuid.UUID,
) (*domain.Evaluation, *domain.EvaluationCiphers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	eval := row.eval
	eval.CreatorEmail = "" // plaintext never persisted
	eval.Title = ""        // placeholder until the token opens the cipher
	ciphers := row.ciphers
	return &eval, &ciphers, nil
}

func (r *memEvaluations) UpdateStatus(
	_ context.Context, id uuid.UUID, from, to domain.EvaluationStatus,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.eval.Status != from {
		return fmt.Errorf("%w: expected status %q", domain.ErrInvalidTransition, from)
	}
	row.eval.Status = to
	return nil
}

type memberRow struct {
	member  domain.Member
	ciphers domain.MemberCiphers
}

type memMembers struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*memberRow
	order []uuid.UUID
}

func newMemMembers() *memMembers {
	return &memMembers{rows: make(map[uuid.UUID]*memberRow)}
}

func (r *memMembers) CreateBatch(
	_ context.Context, members []*domain.Member, nameCiphers, emailCiphers []string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range members {
		m.ID = uuid.New()
		m.CreatedAt = time.Now().UTC()
		stored := *m
		stored.Name, stored.Email, stored.AccessCode = "", "", ""
		r.rows[m.ID] = &memberRow{
			member:  stored,
			ciphers: domain.MemberCiphers{NameCipher: nameCiphers[i], EmailCipher: emailCiphers[i]},
		}
		r.order = append(r.order, m.ID)
	}
	return nil
}

func (r *memMembers) GetByID(
	_ context.Context, id uuid.UUID,
) (*domain.Member, *domain.MemberCiphers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *memMembers) getLocked(id uuid.UUID) (*domain.Member, *domain.MemberCiphers, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	m := row.member
	c := row.ciphers
	return &m, &c, nil
}

func (r *memMembers) ListByEvaluation(
	_ context.Context, evaluationID uuid.UUID,
) ([]*domain.Member, []*domain.MemberCiphers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var members []*domain.Member
	var ciphers []*domain.MemberCiphers
	for _, id := range r.order {
		row := r.rows[id]
		if row.member.EvaluationID != evaluationID {
			continue
		}
		m := row.member
		c := row.ciphers
		members = append(members, &m)
		ciphers = append(ciphers, &c)
	}
	return members, ciphers, nil
}

func (r *memMembers) GetByAccessCodeHash(
	_ context.Context, codeHash string,
) (*domain.Member, *domain.MemberCiphers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.member.AccessCodeHash == codeHash {
			return r.getLocked(row.member.ID)
		}
	}
	return nil, nil, domain.ErrNotFound
}

func (r *memMembers) AccessCodeHashExists(_ context.Context, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.member.AccessCodeHash == codeHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMembers) UpdateLastAccess(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.member.LastAccessDate = &at
	return nil
}

// bump mirrors the capped SQL increment the real repo performs in-tx.
func (r *memMembers) bump(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	if row.member.Completed >= row.member.Total {
		return fmt.Errorf("%w: evaluator completed counter already at total", domain.ErrValidation)
	}
	row.member.Completed++
	return nil
}

type responseRow struct {
	resp    domain.Response
	ciphers domain.CommentCiphers
}

type memResponses struct {
	mu      sync.Mutex
	pairs   map[string]bool
	rows    []responseRow
	members *memMembers
}

func newMemResponses(members *memMembers) *memResponses {
	return &memResponses{pairs: make(map[string]bool), members: members}
}

func (r *memResponses) Save(
	_ context.Context, resp *domain.Response, positiveCipher, improvementCipher string,
) error {
	r.mu.Lock()
	key := strings.Join([]string{
		resp.EvaluationID.String(), resp.EvaluatorID.String(), resp.EvaluatedID.String(),
	}, "|")
	if r.pairs[key] {
		r.mu.Unlock()
		return domain.ErrDuplicateResponse
	}
	r.pairs[key] = true
	resp.ID = uuid.New()
	resp.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, responseRow{
		resp:    *resp,
		ciphers: domain.CommentCiphers{PositiveCipher: positiveCipher, ImprovementCipher: improvementCipher},
	})
	r.mu.Unlock()

	return r.members.bump(resp.EvaluatorID)
}

func (r *memResponses) ListByEvaluated(
	_ context.Context, evaluationID, evaluatedID uuid.UUID,
) ([]*domain.Response, []*domain.CommentCiphers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var responses []*domain.Response
	var ciphers []*domain.CommentCiphers
	for i := range r.rows {
		row := r.rows[i]
		if row.resp.EvaluationID == evaluationID && row.resp.EvaluatedID == evaluatedID {
			resp := row.resp
			c := row.ciphers
			responses = append(responses, &resp)
			ciphers = append(ciphers, &c)
		}
	}
	return responses, ciphers, nil
}

func (r *memResponses) CountByEvaluation(_ context.Context, evaluationID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := range r.rows {
		if r.rows[i].resp.EvaluationID == evaluationID {
			count++
		}
	}
	return count, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *memAudit) Record(_ context.Context, event *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = int64(len(r.events) + 1)
	event.CreatedAt = time.Now().UTC()
	r.events = append(r.events, *event)
	return nil
}

func (r *memAudit) ListByEvaluation(
	_ context.Context, evaluationID uuid.UUID, limit int,
) ([]domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.AuditEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].EvaluationID == evaluationID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

// testEnv wires the full service stack over the in-memory repositories.
type testEnv struct {
	evaluations *EvaluationService
	members     *MemberService
	responses   *ResponseService
	results     *ResultsService
	tokens      *TokenService
	audit       *memAudit
	hub         *telemetry.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider, err := crypto.NewProvider(strings.Repeat("k", 32))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	evalRepo := newMemEvaluations()
	memberRepo := newMemMembers()
	responseRepo := newMemResponses(memberRepo)
	audit := &memAudit{}
	hub := telemetry.NewHub()
	gate := NewManagerGate(evalRepo, provider)
	tokens := NewTokenService("test-signing-secret")

	members := NewMemberService(memberRepo, audit, provider, gate, tokens, logger)
	return &testEnv{
		evaluations: NewEvaluationService(evalRepo, audit, provider, gate, logger),
		members:     members,
		responses:   NewResponseService(responseRepo, memberRepo, audit, provider, hub, logger),
		results:     NewResultsService(responseRepo, members, audit, provider, gate, logger),
		tokens:      tokens,
		audit:       audit,
		hub:         hub,
	}
}
