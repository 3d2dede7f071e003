package jwt

import (
	"testing"
	"time"

	"cmm-stock/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = domain.Identity{UserID: 7, Name: "Alice", Email: "alice@cmm.test", Role: domain.RoleManager}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	token, err := GenerateAccessToken(alice, "secret", 5*time.Minute, now)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "secret", now.Add(4*time.Minute))
	require.NoError(t, err)

	id, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, alice, id)
}

func TestAccessTokenExpiresAfterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	token, err := GenerateAccessToken(alice, "secret", 5*time.Minute, now)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret", now.Add(5*time.Minute+time.Second))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestWrongSecretRejected(t *testing.T) {
	now := time.Now()

	token, err := GenerateRefreshToken(alice, "jti-1", "secret", 24*time.Hour, now)
	require.NoError(t, err)

	_, err = ValidateRefreshToken(token, "other", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ValidateAccessToken("not-a-token", "secret", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	refresh, err := GenerateRefreshToken(alice, "jti-1", "shared", 24*time.Hour, now)
	require.NoError(t, err)
	access, err := GenerateAccessToken(alice, "shared", 5*time.Minute, now)
	require.NoError(t, err)

	_, err = ValidateAccessToken(refresh, "shared", now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ValidateRefreshToken(access, "shared", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	claims, err := ValidateRefreshToken(refresh, "shared", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.Type)
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	token, err := GenerateAccessToken(alice, "secret", 5*time.Minute, now)
	require.NoError(t, err)

	exp, err := ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(now.Add(5*time.Minute)))
}
