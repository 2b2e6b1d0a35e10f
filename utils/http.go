// utils/http.go - Fiber helpers shared by the user and admin handlers
package utils

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"lingoquest/services"
)

// ParseUintParam reads a positive integer route parameter
func ParseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &services.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return uint(id), nil
}

// QueryInt reads an integer query parameter, falling back to def when absent or malformed
func QueryInt(c *fiber.Ctx, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ErrorStatus maps a service error to its HTTP status and a stable machine code
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrChallengeNotFound):
		return fiber.StatusNotFound, "challenge_not_found"
	case errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound, "user_not_found"
	case errors.Is(err, services.ErrDuplicateChallenge):
		return fiber.StatusConflict, "duplicate_challenge"
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		return fiber.StatusConflict, "attempt_limit_exceeded"
	case errors.Is(err, services.ErrChallengeClosed):
		return fiber.StatusConflict, "challenge_closed"
	case errors.Is(err, services.ErrChallengeNotOpen):
		return fiber.StatusConflict, "challenge_not_open"
	case errors.Is(err, services.ErrWrongTier):
		return fiber.StatusForbidden, "wrong_tier"
	case errors.Is(err, services.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, "store_unavailable"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// JSONError writes the error envelope for err. Internal failures hide their message.
func JSONError(c *fiber.Ctx, err error) error {
	status, code := ErrorStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "Internal server error"
	}

	body := fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	}

	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		body["field"] = vErr.Field
	}
	if errors.Is(err, services.ErrAttemptLimitExceeded) {
		body["attempts_left"] = 0
	}
	return c.Status(status).JSON(body)
}

// BadRequest writes a 400 envelope with a fixed message
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
		"code":    "invalid_input",
	})
}
