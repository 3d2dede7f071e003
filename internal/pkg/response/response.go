package response

import (
	"errors"
	"log"

	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned to clients
const (
	CodeValidation      = "validation_error"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeTooManyRequests = "too_many_requests"
	CodeInternal        = "internal_error"
)

// ErrorBody represents an error response
type ErrorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message is the body of responses that only carry a message
type Message struct {
	Message string `json:"message"`
}

// JSON sends v with the given status
func JSON(c *fiber.Ctx, status int, v interface{}) error {
	return c.Status(status).JSON(v)
}

// OK sends a 200 response
func OK(c *fiber.Ctx, v interface{}) error {
	return JSON(c, fiber.StatusOK, v)
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, v interface{}) error {
	return JSON(c, fiber.StatusCreated, v)
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, code, message string) error {
	return c.Status(statusCode).JSON(ErrorBody{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, CodeValidation, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthenticated, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, CodeForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, CodeConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeInternal, message)
}

// FromError maps a service error onto the error taxonomy. notFound is the
// message used for 404s so each resource can name itself.
func FromError(c *fiber.Ctx, err error, notFound string) error {
	var verr validation.Errors
	switch {
	case errors.As(err, &verr):
		return BadRequest(c, verr.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return NotFound(c, "User not found")
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return NotFound(c, notFound)
	case errors.Is(err, domain.ErrPasswordMismatch):
		return BadRequest(c, "Password and Confirm Password do not match")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return BadRequest(c, "User already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return BadRequest(c, "Invalid Credentials")
	case errors.Is(err, domain.ErrInvalidInput):
		return BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrUnauthorized):
		return Unauthorized(c, "Invalid or expired token")
	case errors.Is(err, domain.ErrCannotDeleteSelf),
		errors.Is(err, domain.ErrCannotChangeOwnRole),
		errors.Is(err, domain.ErrForbidden):
		return Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrSequenceExhausted),
		errors.Is(err, domain.ErrConflict):
		return Conflict(c, err.Error())
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return InternalServerError(c, "Server Error")
	}
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusTooManyRequests, CodeTooManyRequests, message)
}

// CodeForStatus picks the error code for a bare HTTP status
func CodeForStatus(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return CodeUnauthenticated
	case status == fiber.StatusForbidden:
		return CodeForbidden
	case status == fiber.StatusNotFound:
		return CodeNotFound
	case status == fiber.StatusConflict:
		return CodeConflict
	case status == fiber.StatusTooManyRequests:
		return CodeTooManyRequests
	case status >= 400 && status < 500:
		return CodeValidation
	}
	return CodeInternal
}
