package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/response"
	"github.com/sangkips/caja-api/internal/presentation/http/handler"
	"github.com/sangkips/caja-api/pkg/utils"
)

// AuthMiddleware creates a JWT authentication middleware. The token comes
// from the Authorization header or, for the browser register, from the
// session cookie.
func AuthMiddleware(jwtManager *utils.JWTManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c, cookieName)
		if !ok {
			response.Unauthorized(c, "Authorization is required")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(handler.ContextUserID, claims.UserID)
		c.Set(handler.ContextUserEmail, claims.Email)
		c.Set(handler.ContextUserRole, claims.Role)
		c.Set(handler.ContextSessionID, claims.SessionID)
		c.Set(handler.ContextClaims, claims)

		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if cookieName == "" {
		return "", false
	}
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}
