package handlers

import (
	"strconv"

	"cmm-stock/internal/adapters/http/middleware"
	"cmm-stock/internal/core/services"
	"cmm-stock/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers handles listing all users
// @Summary List all users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserResponse
// @Failure 401 {object} response.ErrorBody
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.userService.ListUsers(c.Context())
	if err != nil {
		return response.FromError(c, err, "User not found")
	}
	return response.OK(c, users)
}

// Me returns the current user
// @Summary Get current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} response.ErrorBody
// @Router /me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.userService.GetUser(c.Context(), id.UserID)
	if err != nil {
		return response.FromError(c, err, "User not found")
	}
	return response.OK(c, user)
}

// ChangeRole handles changing a user's role (Admin only)
// @Summary Change user role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.ChangeRoleInput true "New role"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	userID, err := parseUserID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var input services.ChangeRoleInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.ChangeRole(c.Context(), actor, userID, &input)
	if err != nil {
		return response.FromError(c, err, "User not found")
	}
	return response.OK(c, user)
}

// DeleteUser handles deleting a user (Admin only)
// @Summary Delete user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentIdentity(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	userID, err := parseUserID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.userService.DeleteUser(c.Context(), actor, userID); err != nil {
		return response.FromError(c, err, "User not found")
	}
	return response.OK(c, response.Message{Message: "User deleted"})
}

func parseUserID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
