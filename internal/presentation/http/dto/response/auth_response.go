package response

import (
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/pkg/utils"
)

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	SessionID string       `json:"session_id"`
	ExpiresAt string       `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// SessionResponse describes the caller of an authenticated request
type SessionResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"rol"`
	SessionID string `json:"session_id"`
}

// NewSessionResponse builds the session view from token claims
func NewSessionResponse(claims *utils.JWTClaims) SessionResponse {
	return SessionResponse{
		UserID:    claims.UserID.String(),
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}
}
