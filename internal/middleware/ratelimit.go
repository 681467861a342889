package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/analytics"
	"github.com/serroba/persona-api/internal/messaging"
	"github.com/serroba/persona-api/internal/ratelimit"
	"go.uber.org/zap"
)

// TooManyRequestsBody is written when a request is rejected by the limiter.
type TooManyRequestsBody struct {
	Error      string  `json:"error"`
	RetryAfter float64 `json:"retry_after"`
}

// RateLimiter returns a Huma middleware that admits at most the limiter's
// quota of requests per client. Rejected requests get a 429 with a Retry-After
// header and never reach the wrapped handler. Cache failures surface as 500.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	publish messaging.Publish[analytics.RateLimitedEvent],
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		clientID := ratelimit.ClientID(ctx.Header("X-Forwarded-For"), ctx.RemoteAddr())
		path := ctx.URL().Path

		decision, err := limiter.Allow(ctx.Context(), clientID)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !decision.Allowed {
			handleRateLimitExceeded(ctx, clientID, "", decision, publish, logger)

			return
		}

		next(ctx)
	}
}

// PolicyRateLimiter returns a Huma middleware that throttles each operation
// under the scopes the resolver finds for it. It must run after Authenticate:
// authenticated callers are counted per user and skip the anon scope.
// Operations that resolve to no scopes pass straight through.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	publish messaging.Publish[analytics.RateLimitedEvent],
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		scopes := resolver.Resolve(ctx)
		if len(scopes) == 0 {
			next(ctx)

			return
		}

		identity := ratelimit.Identity{ClientID: ratelimit.ClientID(ctx.Header("X-Forwarded-For"), ctx.RemoteAddr())}
		identity.UserID, identity.Authenticated = account.UserFromContext(ctx.Context())

		allowed, exceeded, err := limiter.Allow(ctx.Context(), identity, scopes)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", getOperationPath(ctx)), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			handleRateLimitExceeded(ctx, identity.Key(), exceeded.Scope, exceeded.Decision, publish, logger)

			return
		}

		next(ctx)
	}
}

// getOperationPath extracts the path from the operation, if available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// handleRateLimitExceeded logs, publishes and answers a rejected request.
func handleRateLimitExceeded(
	ctx huma.Context,
	clientKey string,
	scope ratelimit.Scope,
	decision ratelimit.Decision,
	publish messaging.Publish[analytics.RateLimitedEvent],
	logger *zap.Logger,
) {
	path := ctx.URL().Path

	logger.Warn("rate limit exceeded",
		zap.String("client_id", clientKey),
		zap.String("scope", string(scope)),
		zap.String("path", path),
		zap.String("method", ctx.Method()),
		zap.Int("count", decision.Count),
		zap.Duration("retry_after", decision.RetryAfter),
	)

	event := analytics.NewRateLimitedEvent(clientKey, path, decision.RetryAfterSeconds(), time.Now())
	event.Scope = string(scope)

	if err := publish(ctx.Context(), event); err != nil {
		logger.Error("failed to publish rate limit event", zap.Error(err))
	}

	writeTooManyRequests(ctx, decision)
}

func writeTooManyRequests(ctx huma.Context, decision ratelimit.Decision) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetHeader("Retry-After", decision.RetryAfterHeader())
	ctx.SetStatus(http.StatusTooManyRequests)

	_ = json.NewEncoder(ctx.BodyWriter()).Encode(TooManyRequestsBody{
		Error:      http.StatusText(http.StatusTooManyRequests),
		RetryAfter: decision.RetryAfterSeconds(),
	})
}
