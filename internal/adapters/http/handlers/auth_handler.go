package handlers

import (
	"time"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/config"
	"cmm-stock/internal/core/services"
	"cmm-stock/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RefreshTokenCookie holds the refresh token between page loads
const RefreshTokenCookie = "refreshToken"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message string               `json:"message"`
	User    *models.UserResponse `json:"user"`
}

// TokenResponse carries a fresh access token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Register handles user registration
// @Summary Register new user
// @Description Create an account. Role defaults to User.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Registration data"
// @Success 200 {object} RegisterResponse
// @Failure 400 {object} response.ErrorBody
// @Router /users [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.authService.Register(c.Context(), &input)
	if err != nil {
		return response.FromError(c, err, "User not found")
	}

	return response.OK(c, RegisterResponse{
		Message: "Registration Successful",
		User:    user.ToResponse(),
	})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate and receive an access token. The refresh token is set as an http-only cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.authService.Login(c.Context(), &input)
	if err != nil {
		return response.FromError(c, err, "User not found")
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken, result.Tokens.RefreshExpiresAt)

	return response.OK(c, TokenResponse{AccessToken: result.Tokens.AccessToken})
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Issue a new access token from the refresh cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} response.ErrorBody
// @Router /token [get]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies(RefreshTokenCookie)
	if refreshToken == "" {
		return response.Unauthorized(c, "Refresh token not found")
	}

	accessToken, err := h.authService.Refresh(c.Context(), refreshToken)
	if err != nil {
		return response.FromError(c, err, "User not found")
	}

	return response.OK(c, TokenResponse{AccessToken: accessToken})
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the refresh token. Answers 204 when there is nothing to revoke.
// @Tags Auth
// @Success 200
// @Success 204
// @Router /logout [delete]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	revoked, err := h.authService.Logout(c.Context(), c.Cookies(RefreshTokenCookie))
	if err != nil {
		return response.FromError(c, err, "User not found")
	}
	if !revoked {
		return c.SendStatus(fiber.StatusNoContent)
	}

	h.clearRefreshCookie(c)
	return c.SendStatus(fiber.StatusOK)
}

// setRefreshCookie sets the refresh token cookie
func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, refreshToken string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(h.cfg.JWT.RefreshTTL.Seconds()),
		Expires:  expires,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearRefreshCookie clears the refresh token cookie
func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}
