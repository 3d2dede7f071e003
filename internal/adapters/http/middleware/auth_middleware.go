package middleware

import (
	"errors"
	"strings"

	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// TokenValidator turns an access token into an identity
type TokenValidator interface {
	ValidateAccessToken(accessToken string) (domain.Identity, error)
}

// AuthMiddleware creates authentication middleware. Only the Authorization
// header is accepted; cookies never authenticate a request.
func AuthMiddleware(v TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		authHeader := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(authHeader, "Bearer ") {
			accessToken = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		id, err := v.ValidateAccessToken(accessToken)
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware
func CurrentIdentity(c *fiber.Ctx) (domain.Identity, bool) {
	id, ok := c.Locals(identityKey).(domain.Identity)
	return id, ok
}

// RequireRoles creates role-based authorization middleware
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, role := range allowed {
			if id.Role == role {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly allows only the Admin role
func AdminOnly() fiber.Handler {
	return RequireRoles(domain.RoleAdmin)
}

// TransactionWriters allows the roles that may change transactions
func TransactionWriters() fiber.Handler {
	var allowed []domain.Role
	for _, r := range domain.Roles {
		if r.CanWriteTransactions() {
			allowed = append(allowed, r)
		}
	}
	return RequireRoles(allowed...)
}
