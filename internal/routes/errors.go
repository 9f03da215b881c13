package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/calivra/calivra_bank/internal/account"
	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/auth"
	"github.com/calivra/calivra_bank/internal/identity"
	"github.com/calivra/calivra_bank/internal/ledger"
	"github.com/calivra/calivra_bank/internal/middleware"
	"github.com/calivra/calivra_bank/internal/transfers"
)

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case apperr.IsValidation(err),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized),
		errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenInvalidated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden),
		errors.Is(err, account.ErrInvalidPIN):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyProcessed),
		errors.Is(err, ledger.ErrDuplicateTransaction),
		errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, account.ErrExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, transfers.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every handler error as JSON. Internal errors are
// logged and their text withheld from the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusFor(err)
		body := errorBody{Error: err.Error(), RequestID: middleware.RequestIDFrom(c)}

		var v *apperr.ValidationError
		if errors.As(err, &v) {
			body.Error, body.Field = v.Reason, v.Field
		}
		if status == http.StatusInternalServerError {
			logger.Error("unhandled error", "path", c.Path(), "request_id", body.RequestID, "error", err)
			body.Error = http.StatusText(status)
		}
		return c.Status(status).JSON(body)
	}
}
