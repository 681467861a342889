package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/account"
	"go.uber.org/zap"
)

const bearerScheme = "bearer "

// TokenResolver maps an access token to its user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Authenticate resolves "Authorization: Bearer <token>" into the request
// context. Requests without a valid token pass through anonymous; handlers
// decide whether that is acceptable.
func Authenticate(resolver TokenResolver, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		if len(header) <= len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
			next(ctx)

			return
		}

		userID, err := resolver.Resolve(ctx.Context(), strings.TrimSpace(header[len(bearerScheme):]))
		if err != nil {
			if !errors.Is(err, account.ErrInvalidToken) {
				logger.Error("token resolution failed", zap.Error(err))
			}

			next(ctx)

			return
		}

		next(huma.WithContext(ctx, account.ContextWithUser(ctx.Context(), userID)))
	}
}
