package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/utils"
	"go.uber.org/zap"
)

// AuthService handles authentication-related operations
type AuthService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	carts      *CartStore
	log        *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	carts *CartStore,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		carts:      carts,
		log:        log,
	}
}

// LoginInput represents the login input
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput represents the login output. Every login opens a new register
// session with its own cart.
type LoginOutput struct {
	User        *entity.User
	AccessToken string
	SessionID   string
	ExpiresAt   time.Time
}

// Login authenticates a user and returns a session token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !user.Active {
		return nil, apperror.ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	sessionID := utils.NewSessionID()
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", sessionID),
	)

	return &LoginOutput{
		User:        user,
		AccessToken: accessToken,
		SessionID:   sessionID,
		ExpiresAt:   time.Now().Add(s.jwtManager.Expiry()),
	}, nil
}

// Logout ends the register session and drops its cart
func (s *AuthService) Logout(sessionID string) {
	s.carts.Discard(sessionID)
	s.log.Info("session closed", zap.String("session_id", sessionID))
}
