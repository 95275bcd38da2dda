package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"peerloop/api/internal/core/domain"
)

// sessionClaims is the JWT payload minted after a successful access-code
// login. The subject is the member id; the evaluation id rides along so
// handlers can scope lookups without an extra query.
type sessionClaims struct {
	EvaluationID string `json:"evaluation_id"`
	TokenType    string `json:"token_type"`
	jwt.RegisteredClaims
}

const sessionTokenType = "member-session"

// TokenService mints and verifies member session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: time.Hour}
}

// MintSession issues a short-lived HS256 token bound to the member.
func (s *TokenService) MintSession(memberID, evaluationID uuid.UUID) (string, error) {
	claims := sessionClaims{
		EvaluationID: evaluationID.String(),
		TokenType:    sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "peerloop-api",
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifySession validates signature, expiry and token type, and returns the
// member identity the session belongs to.
func (s *TokenService) VerifySession(tokenString string) (*domain.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Pin the signing method so an attacker cannot downgrade to "none".
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid or expired session token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}
	if claims.TokenType != sessionTokenType {
		return nil, fmt.Errorf("invalid token type")
	}

	memberID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("malformed subject claim")
	}
	evaluationID, err := uuid.Parse(claims.EvaluationID)
	if err != nil {
		return nil, fmt.Errorf("malformed evaluation claim")
	}

	return &domain.SessionClaims{MemberID: memberID, EvaluationID: evaluationID}, nil
}
