package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// writeError traduce la taxonomía de errores de dominio a códigos HTTP.
// Los errores reintentables (bloqueo, conflicto transitorio) responden 503 con Retry-After.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case domain.IsRetryable(err):
		c.Set(fiber.HeaderRetryAfter, "1")
		status, code = fiber.StatusServiceUnavailable, "RETRYABLE"
	case errors.Is(err, domain.ErrSequenceUnavailable):
		status, code = fiber.StatusServiceUnavailable, "SEQUENCE_UNAVAILABLE"
	case errors.Is(err, domain.ErrInvariantViolation):
		status, code = fiber.StatusConflict, "INVARIANT_VIOLATION"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "CONFLICT"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
