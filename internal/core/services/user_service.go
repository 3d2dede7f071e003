package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/clock"
	"cmm-stock/internal/pkg/validation"

	"gorm.io/gorm"
)

// UserService handles user management business logic
type UserService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	clock            clock.Clock
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	clk clock.Clock,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		clock:            clk,
	}
}

// ChangeRoleInput represents the role update body
type ChangeRoleInput struct {
	Role string `json:"role" validate:"required"`
}

// ListUsers returns every user
func (s *UserService) ListUsers(ctx context.Context) ([]*models.UserResponse, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}
	return out, nil
}

// GetUser returns one user
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user.ToResponse(), nil
}

// ChangeRole sets the role of another user
func (s *UserService) ChangeRole(ctx context.Context, actor domain.Identity, id uint, input *ChangeRoleInput) (*models.UserResponse, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	role, err := domain.ParseRole(strings.TrimSpace(input.Role))
	if err != nil {
		return nil, err
	}

	if actor.UserID == id {
		return nil, domain.ErrCannotChangeOwnRole
	}

	n, err := s.userRepo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// MySQL reports zero rows when the role is unchanged
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrUserNotFound
			}
			return nil, err
		}
	}

	log.Printf("✅ Role of user %d changed to %s by %s", id, role, actor.Email)
	return s.GetUser(ctx, id)
}

// DeleteUser removes another user and revokes their sessions
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Identity, id uint) error {
	if actor.UserID == id {
		return domain.ErrCannotDeleteSelf
	}

	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, id, s.clock.Now()); err != nil {
		return err
	}

	n, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}

	log.Printf("🗑️ User %d deleted by %s", id, actor.Email)
	return nil
}
