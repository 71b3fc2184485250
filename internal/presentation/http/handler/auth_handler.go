package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/application/service"
	"github.com/sangkips/caja-api/internal/config"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/request"
	"github.com/sangkips/caja-api/internal/presentation/http/dto/response"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	cookie      config.JWTConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, cookie config.JWTConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// Login authenticates an operator and opens a register session
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	output, err := h.authService.Login(c.Request.Context(), &service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(time.Until(output.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, output.AccessToken, maxAge, "/", "", h.cookie.CookieSecure, true)

	response.OK(c, "Login successful", response.LoginResponse{
		Token:     output.AccessToken,
		TokenType: "Bearer",
		SessionID: output.SessionID,
		ExpiresAt: output.ExpiresAt.UTC().Format(time.RFC3339),
		User:      output.User,
	})
}

// Logout closes the register session and discards its cart
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}

	h.authService.Logout(sessionID)
	c.SetCookie(h.cookie.CookieName, "", -1, "/", "", h.cookie.CookieSecure, true)
	response.OK(c, "Logged out successfully", nil)
}

// Me returns the caller's session
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Unauthorized(c, "Session not authenticated")
		return
	}
	response.OK(c, "Session retrieved successfully", response.NewSessionResponse(claims))
}
