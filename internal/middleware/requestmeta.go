package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/handlers"
	"github.com/serroba/persona-api/internal/ratelimit"
)

// RequestMeta is a middleware that adds client IP and user-agent to the request context.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  ratelimit.ClientID(ctx.Header("X-Forwarded-For"), ctx.RemoteAddr()),
			UserAgent: ctx.Header("User-Agent"),
		}

		ctx = huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta))

		next(ctx)
	}
}
