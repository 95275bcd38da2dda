package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"peerloop/api/internal/api/middleware"
	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type CreateEvaluationRequest struct {
	CreatorEmail string `json:"creator_email" validate:"required,email,max=254"`
	Title        string `json:"title" validate:"required,max=200"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type EvaluationHandler struct {
	Evaluations *services.EvaluationService
	Results     *services.ResultsService
}

func NewEvaluationHandler(
	evaluations *services.EvaluationService, results *services.ResultsService,
) *EvaluationHandler {
	return &EvaluationHandler{Evaluations: evaluations, Results: results}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Create handles POST /api/v1/evaluations
func (h *EvaluationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	eval, managerToken, err := h.Evaluations.Create(r.Context(), req.CreatorEmail, req.Title)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"evaluation_id": eval.ID,
		"title":         eval.Title,
		"status":        eval.Status,
		// The one and only emission of the capability credential.
		"manager_token": managerToken,
	})
}

// Activate handles POST /api/v1/evaluations/{id}/activate
func (h *EvaluationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Evaluations.Activate)
}

// Complete handles POST /api/v1/evaluations/{id}/complete
func (h *EvaluationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Evaluations.Complete)
}

func (h *EvaluationHandler) transition(
	w http.ResponseWriter, r *http.Request,
	step func(ctx context.Context, id uuid.UUID, token string) (*domain.Evaluation, error),
) {
	evalID, ok := evaluationID(w, r)
	if !ok {
		return
	}

	eval, err := step(r.Context(), evalID, middleware.ManagerToken(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluation_id": eval.ID,
		"status":        eval.Status,
	})
}

// GetResults handles GET /api/v1/evaluations/{id}/results
func (h *EvaluationHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	evalID, ok := evaluationID(w, r)
	if !ok {
		return
	}

	results, err := h.Results.GetResults(r.Context(), evalID, middleware.ManagerToken(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// GetAuditTrail handles GET /api/v1/evaluations/{id}/audit
func (h *EvaluationHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	evalID, ok := evaluationID(w, r)
	if !ok {
		return
	}

	events, err := h.Evaluations.AuditTrail(r.Context(), evalID, middleware.ManagerToken(r), 100)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// evaluationID parses the {id} URL segment, replying 400 on garbage.
func evaluationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid evaluation ID format")
		return uuid.Nil, false
	}
	return id, true
}
