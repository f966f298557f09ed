package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/localgroup/localgroup-server/internal/apperr"
)

// Every endpoint answers with the same envelope. Errors carry the
// machine-readable kind alongside the human message; nothing is silently
// swallowed at this boundary.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(response{Success: true, Message: message, Data: data})
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(response{
		Success: false,
		Message: err.Error(),
		Error:   apperr.Kind(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, apperr.ErrNotAMember):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrGroupFull), errors.Is(err, apperr.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, apperr.ErrInvalidInviteCode),
		errors.Is(err, apperr.ErrInvalidTarget),
		errors.Is(err, apperr.ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
