package serverutils

import (
	"errors"

	"flowchat-be/internal/pkg/logger"
	"flowchat-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error to the HTTP status sent to the client.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindUpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	case apperror.KindUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the failure envelope.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	handle := ErrorHandler(log)
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return handle(ctx, err)
	}
}

// ErrorHandler is the fiber.Config form, used for errors raised outside the
// middleware chain.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := StatusFor(err)
		message := err.Error()

		var appErr *apperror.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			message = fiberErr.Message
		case errors.As(err, &appErr):
			message = appErr.Message
		}

		details := map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": code,
			"error":  err.Error(),
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", details)
		} else {
			log.Warn("HTTP", "Request rejected", details)
		}

		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
