package services

import (
	"context"
	"testing"
	"time"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, f *fixture, email string, role domain.Role) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), &RegisterInput{
		Name:         "Tester",
		Email:        email,
		Password:     "rahasia123",
		ConfPassword: "rahasia123",
		Role:         string(role),
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := register(t, f, "Admin@CMM.co.id", domain.RoleAdmin)
	assert.Equal(t, "admin@cmm.co.id", u.Email)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.NotEqual(t, "rahasia123", u.Password)

	_, err := f.auth.Register(ctx, &RegisterInput{
		Name: "Dup", Email: "admin@cmm.co.id", Password: "x", ConfPassword: "x",
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	plain, err := f.auth.Register(ctx, &RegisterInput{
		Name: "Plain", Email: "plain@cmm.co.id", Password: "x", ConfPassword: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, plain.Role)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, &RegisterInput{
		Name: "A", Email: "a@cmm.co.id", Password: "one", ConfPassword: "two",
	})
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	_, err = f.auth.Register(ctx, &RegisterInput{Name: "A", Email: "a@cmm.co.id"})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("password", "required"))
	assert.True(t, verr.Has("confPassword", "required"))

	_, err = f.auth.Register(ctx, &RegisterInput{
		Name: "A", Email: "a@cmm.co.id", Password: "x", ConfPassword: "x", Role: "Superuser",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	users, err := f.userRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "staff@cmm.co.id", domain.RoleStaff)

	res, err := f.auth.Login(ctx, &LoginInput{Email: "staff@cmm.co.id", Password: "rahasia123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.Equal(t, jan1.Add(24*time.Hour), res.Tokens.RefreshExpiresAt)

	id, err := f.auth.ValidateAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: u.ID, Name: "Tester", Email: "staff@cmm.co.id", Role: domain.RoleStaff}, id)

	f.clock.Advance(6 * time.Minute)
	_, err = f.auth.ValidateAccessToken(res.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	access, err := f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = f.auth.ValidateAccessToken(access)
	assert.NoError(t, err)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "staff@cmm.co.id", domain.RoleStaff)

	cfg := testConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.Secret
	auth := NewAuthService(f.userRepo, repositories.NewRefreshTokenRepository(f.db), cfg, f.clock)

	res, err := auth.Login(ctx, &LoginInput{Email: "staff@cmm.co.id", Password: "rahasia123"})
	require.NoError(t, err)

	f.clock.Advance(6 * time.Hour)
	_, err = auth.ValidateAccessToken(res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = auth.ValidateAccessToken(res.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "staff@cmm.co.id", domain.RoleStaff)

	_, err := f.auth.Login(ctx, &LoginInput{Email: "nobody@cmm.co.id", Password: "rahasia123"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	res, err := f.auth.Login(ctx, &LoginInput{Email: "staff@cmm.co.id", Password: "salah"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, res)

	var n int64
	require.NoError(t, f.db.Model(&models.RefreshToken{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "manager@cmm.co.id", domain.RoleManager)

	res, err := f.auth.Login(ctx, &LoginInput{Email: "manager@cmm.co.id", Password: "rahasia123"})
	require.NoError(t, err)

	revoked, err := f.auth.Logout(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	revoked, err = f.auth.Logout(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = f.auth.Logout(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRefreshRejectsExpiredAndUnknownTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "manager@cmm.co.id", domain.RoleManager)

	res, err := f.auth.Login(ctx, &LoginInput{Email: "manager@cmm.co.id", Password: "rahasia123"})
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.auth.Refresh(ctx, res.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	f.clock.Advance(25 * time.Hour)
	_, err = f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	n, err := f.auth.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
