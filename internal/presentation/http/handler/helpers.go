package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/request"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/response"
	"github.com/sangkips/caja-api/pkg/utils"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextSessionID = "session_id"
	ContextClaims    = "claims"
)

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get(ContextUserID)
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetSessionID extracts the register session ID from the Gin context
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// GetClaims returns the validated token claims of the request
func GetClaims(c *gin.Context) *utils.JWTClaims {
	claims, exists := c.Get(ContextClaims)
	if !exists {
		return nil
	}
	out, _ := claims.(*utils.JWTClaims)
	return out
}

// requireSession writes 401 and returns false when the request carries no session
func requireSession(c *gin.Context) (string, bool) {
	sessionID := GetSessionID(c)
	if sessionID == "" {
		response.Unauthorized(c, "Session not authenticated")
		return "", false
	}
	return sessionID, true
}

// bindJSON decodes the body strictly and writes 400 on failure
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.Error(c, request.BindError(err))
		return false
	}
	return true
}
