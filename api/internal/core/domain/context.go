package domain

import "github.com/google/uuid"

type contextKey string

// SessionContextKey carries the verified *SessionClaims of a logged-in member
// through the request context.
const SessionContextKey contextKey = "peerloop.session"

// SessionClaims is the authenticated identity minted after access-code login.
type SessionClaims struct {
	MemberID     uuid.UUID
	EvaluationID uuid.UUID
}
