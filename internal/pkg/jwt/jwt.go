package jwt

import (
	"errors"
	"time"

	"cmm-stock/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "cmm-stock"

// Token types carried in the typ claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims represents the claims carried by both access and refresh tokens
type Claims struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Identity converts the claims into a domain identity
func (c *Claims) Identity() (domain.Identity, error) {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		UserID: c.UserID,
		Name:   c.Name,
		Email:  c.Email,
		Role:   role,
	}, nil
}

func newClaims(id domain.Identity, typ, tokenID string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		UserID: id.UserID,
		Name:   id.Name,
		Email:  id.Email,
		Role:   string(id.Role),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   id.Email,
		},
	}
}

// GenerateAccessToken generates a new access token
func GenerateAccessToken(id domain.Identity, secret string, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(id, TypeAccess, "", ttl, now))
	return token.SignedString([]byte(secret))
}

// GenerateRefreshToken generates a new refresh token. tokenID makes two tokens
// issued in the same second distinct.
func GenerateRefreshToken(id domain.Identity, tokenID, secret string, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(id, TypeRefresh, tokenID, ttl, now))
	return token.SignedString([]byte(secret))
}

// ValidateAccessToken validates an access token and returns claims.
// Refresh tokens are rejected even when both are signed with one secret.
func ValidateAccessToken(tokenString, secret string, now time.Time) (*Claims, error) {
	return validate(tokenString, secret, TypeAccess, now)
}

// ValidateRefreshToken validates a refresh token and returns claims
func ValidateRefreshToken(tokenString, secret string, now time.Time) (*Claims, error) {
	return validate(tokenString, secret, TypeRefresh, now)
}

func validate(tokenString, secret, typ string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Type == typ {
		return claims, nil
	}

	return nil, ErrTokenInvalid
}

// ExpiresAt reads the expiry of a token without verifying its signature.
// Clients use it to refresh ahead of time; servers must never trust it.
func ExpiresAt(tokenString string) (time.Time, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, ErrTokenInvalid
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenInvalid
	}
	return claims.ExpiresAt.Time, nil
}
