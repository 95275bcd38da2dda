package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
	"peerloop/api/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type SubmitResponseRequest struct {
	EvaluationID uuid.UUID      `json:"evaluation_id" validate:"required"`
	EvaluatorID  uuid.UUID      `json:"evaluator_id" validate:"required"`
	EvaluatedID  uuid.UUID      `json:"evaluated_id" validate:"required"`
	Ratings      RatingsPayload `json:"ratings" validate:"required"`
	Comments     struct {
		Positive    string `json:"positive" validate:"max=5000"`
		Improvement string `json:"improvement" validate:"max=5000"`
	} `json:"comments"`
}

type RatingsPayload struct {
	Question1 int `json:"question_1" validate:"required,min=1,max=5"`
	Question2 int `json:"question_2" validate:"required,min=1,max=5"`
	Question3 int `json:"question_3" validate:"required,min=1,max=5"`
	Question4 int `json:"question_4" validate:"required,min=1,max=5"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type ResponseHandler struct {
	Responses *services.ResponseService
}

func NewResponseHandler(responses *services.ResponseService) *ResponseHandler {
	return &ResponseHandler{Responses: responses}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Submit handles POST /api/v1/responses
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := r.Context().Value(domain.SessionContextKey).(*domain.SessionClaims)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing session")
		return
	}

	var req SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	_, err := h.Responses.Submit(r.Context(), session, services.SubmitInput{
		EvaluationID: req.EvaluationID,
		EvaluatorID:  req.EvaluatorID,
		EvaluatedID:  req.EvaluatedID,
		Ratings: domain.Ratings{
			Question1: req.Ratings.Question1,
			Question2: req.Ratings.Question2,
			Question3: req.Ratings.Question3,
			Question4: req.Ratings.Question4,
		},
		PositiveComment:    req.Comments.Positive,
		ImprovementComment: req.Comments.Improvement,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}
