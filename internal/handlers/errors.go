package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/persona"
	"go.uber.org/zap"
)

// requireUser returns the authenticated user or a 401.
func requireUser(ctx context.Context) (int64, error) {
	userID, ok := account.UserFromContext(ctx)
	if !ok {
		return 0, huma.Error401Unauthorized("authentication required")
	}

	return userID, nil
}

// toHTTPError maps domain errors to huma status errors. Anything unrecognised
// is logged and reported as a 500.
func toHTTPError(err error, logger *zap.Logger) error {
	switch {
	case errors.Is(err, persona.ErrNotFound), errors.Is(err, account.ErrUserNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, persona.ErrForbidden):
		return huma.Error403Forbidden("permission denied")
	case errors.Is(err, persona.ErrConflict),
		errors.Is(err, account.ErrUsernameTaken),
		errors.Is(err, account.ErrWalletTaken):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, persona.ErrInvalidKey),
		errors.Is(err, persona.ErrInvalidValueType),
		errors.Is(err, account.ErrInvalidUsername),
		errors.Is(err, account.ErrInvalidWallet):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrInvalidToken):
		return huma.Error401Unauthorized(err.Error())
	default:
		logger.Error("request failed", zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}
