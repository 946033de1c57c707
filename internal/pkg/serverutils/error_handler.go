package serverutils

import (
	"errors"

	"sloth-wake-be/internal/repository/contract"
	"sloth-wake-be/pkg/personality"
	"sloth-wake-be/pkg/speech"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a service error onto an HTTP status and a client-safe message.
func StatusFor(err error) (int, string) {
	var validationErr *ValidationError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Error()
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, contract.ErrSessionNotFound):
		return fiber.StatusNotFound, "Session not found"
	case errors.Is(err, contract.ErrInvalidState):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, contract.ErrSessionReleased):
		return fiber.StatusConflict, "Session already released"
	case errors.Is(err, speech.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "Speech capability not available"
	case errors.Is(err, personality.ErrContractViolation):
		return fiber.StatusInternalServerError, "Message selection failed"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(code).JSON(ErrorResponseWithData(code, "Validation failed", validationErr.Fields))
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
