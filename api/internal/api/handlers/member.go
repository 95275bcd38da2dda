package handlers

import (
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

type AddMembersRequest struct {
	Members []MemberEntry `json:"members" validate:"required,min=2,max=100,dive"`
}

type MemberEntry struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

type AccessCodeLoginRequest struct {
	AccessCode string `json:"access_code" validate:"required,len=6,numeric"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type MemberHandler struct {
	Members *services.MemberService
}

func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{Members: members}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Add handles POST /api/v1/evaluations/{id}/members
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	evalID, ok := evaluationID(w, r)
	if !ok {
		return
	}

	var req AddMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	inputs := make([]services.MemberInput, len(req.Members))
	for i, m := range req.Members {
		inputs[i] = services.MemberInput{Name: m.Name, Email: m.Email}
	}

	members, err := h.Members.AddMembers(r.Context(), evalID, middleware.ManagerToken(r), inputs)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	// The response carries each member's plaintext access code exactly once;
	// after this only the hash exists anywhere.
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"members": members,
	})
}

// List handles GET /api/v1/evaluations/{id}/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	evalID, ok := evaluationID(w, r)
	if !ok {
		return
	}

	members, err := h.Members.GetMembers(r.Context(), evalID, middleware.ManagerToken(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"members": members,
	})
}

// Login handles POST /api/v1/auth/access-code
func (h *MemberHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AccessCodeLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid JSON payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	result, err := h.Members.AccessCodeLogin(r.Context(), req.AccessCode)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"evaluation_id":     result.EvaluationID,
		"current_member_id": result.CurrentMemberID,
		"members":           result.Members,
		"session_token":     result.SessionToken,
	})
}

// TouchLastAccess handles POST /api/v1/members/{id}/last-access
func (h *MemberHandler) TouchLastAccess(w http.ResponseWriter, r *http.Request) {
	session, ok := r.Context().Value(domain.SessionContextKey).(*domain.SessionClaims)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing session")
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid member ID format")
		return
	}

	if err := h.Members.TouchLastAccess(r.Context(), session, memberID); err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
