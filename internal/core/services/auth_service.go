package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/config"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/clock"
	"cmm-stock/internal/pkg/jwt"
	"cmm-stock/internal/pkg/password"
	"cmm-stock/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	cfg              *config.Config
	clock            clock.Clock
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	cfg *config.Config,
	clk clock.Clock,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		cfg:              cfg,
		clock:            clk,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	ConfPassword string `json:"confPassword" validate:"required"`
	Role         string `json:"role"`
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the issued tokens and the user they belong to
type LoginResult struct {
	User   *models.User
	Tokens *domain.TokenPair
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if input.Password != input.ConfPassword {
		return nil, domain.ErrPasswordMismatch
	}

	role, err := domain.ParseRole(strings.TrimSpace(input.Role))
	if err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Role:     role,
		Password: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsDuplicate(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, err
	}

	log.Printf("✅ User registered: %s (%s)", user.Email, user.Role)
	return user, nil
}

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}

	if err := s.storeRefreshToken(ctx, user.ID, tokens); err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", user.Email)

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh issues a new access token for a stored, unrevoked refresh token.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrUnauthorized
	}

	now := s.clock.Now()

	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret, now)
	if err != nil {
		return "", mapTokenError(err)
	}

	stored, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrTokenInvalid
		}
		return "", err
	}

	if stored.IsRevoked() {
		return "", domain.ErrTokenInvalid
	}
	if stored.IsExpired(now) {
		return "", domain.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrTokenInvalid
		}
		return "", err
	}

	// claims follow the current row so role changes apply on the next refresh
	accessToken, err := jwt.GenerateAccessToken(user.Identity(), s.cfg.JWT.Secret, s.cfg.JWT.AccessTTL, now)
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// Logout revokes a refresh token. It reports false when there was nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}

	n, err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken), s.clock.Now())
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	log.Printf("✅ User logged out")
	return true, nil
}

// ValidateAccessToken validates an access token and returns its identity
func (s *AuthService) ValidateAccessToken(accessToken string) (domain.Identity, error) {
	claims, err := jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret, s.clock.Now())
	if err != nil {
		return domain.Identity{}, mapTokenError(err)
	}

	id, err := claims.Identity()
	if err != nil {
		return domain.Identity{}, domain.ErrTokenInvalid
	}
	return id, nil
}

// PurgeExpiredTokens deletes refresh token rows past their expiry
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return n, nil
}

func mapTokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return domain.ErrTokenExpired
	}
	return domain.ErrTokenInvalid
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*domain.TokenPair, error) {
	now := s.clock.Now()
	id := user.Identity()

	accessToken, err := jwt.GenerateAccessToken(id, s.cfg.JWT.Secret, s.cfg.JWT.AccessTTL, now)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(id, uuid.New().String(), s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTTL, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.cfg.JWT.RefreshTTL),
	}, nil
}

// storeRefreshToken stores a refresh token in the database
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, tokens *domain.TokenPair) error {
	return s.refreshTokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(tokens.RefreshToken),
		ExpiresAt: tokens.RefreshExpiresAt,
	})
}
