package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/store"
)

// AppError is an error with the HTTP status it should be answered with.
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string { return e.Message }

func newAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// classify maps err to a status code and a client-safe message.
func classify(err error) (int, string) {
	var (
		appErr *AppError
		fErr   *fiber.Error
		vErr   *domain.ValidationError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr.Code, appErr.Message
	case errors.As(err, &fErr):
		return fErr.Code, fErr.Message
	case errors.As(err, &vErr):
		return fiber.StatusBadRequest, vErr.Message
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, "no document found with that id"
	case errors.Is(err, store.ErrConflict):
		return fiber.StatusConflict, "duplicate field value, please use another value"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrOAuthAccount):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return fiber.StatusUnauthorized, "token not valid, please login again"
	case errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrPasswordChanged),
		errors.Is(err, auth.ErrOAuthRejected):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrPasswordMismatch):
		return fiber.StatusUnauthorized, "your current password is wrong"
	case errors.Is(err, auth.ErrUserGone),
		errors.Is(err, auth.ErrUnknownProvider):
		return fiber.StatusNotFound, err.Error()
	}
	return fiber.StatusInternalServerError, "something went wrong"
}

// errorHandler renders every handler error as {"status","message"}:
// "fail" for client errors, "error" for server errors.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := classify(err)
		status := "fail"
		if code >= fiber.StatusInternalServerError {
			status = "error"
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"status": status, "message": msg})
	}
}
