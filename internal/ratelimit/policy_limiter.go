package ratelimit

import (
	"context"
	"strconv"
)

// Policy maps each scope to the limiter settings it is enforced with.
// A config with an empty KeyPrefix is stored under "throttle:<scope>:".
type Policy struct {
	Limits map[Scope]Config
}

// Identity is who a request is counted against.
type Identity struct {
	ClientID      string
	UserID        int64
	Authenticated bool
}

// Key returns "user:<id>" for authenticated callers and the client ID otherwise.
func (i Identity) Key() string {
	if i.Authenticated {
		return "user:" + strconv.FormatInt(i.UserID, 10)
	}

	return i.ClientID
}

// LimitExceeded contains information about which limit was exceeded.
type LimitExceeded struct {
	Scope    Scope
	Config   Config
	Decision Decision
}

// PolicyLimiter enforces rate limits based on a policy and resolved scopes.
// Every scope is backed by its own SlidingWindowLimiter over the shared cache.
type PolicyLimiter struct {
	limiters map[Scope]*SlidingWindowLimiter
}

// NewPolicyLimiter creates a new policy-based rate limiter.
func NewPolicyLimiter(cache Cache, policy Policy, opts ...Option) *PolicyLimiter {
	limiters := make(map[Scope]*SlidingWindowLimiter, len(policy.Limits))

	for scope, cfg := range policy.Limits {
		if cfg.KeyPrefix == "" {
			cfg.KeyPrefix = "throttle:" + string(scope) + ":"
		}

		limiters[scope] = NewSlidingWindowLimiter(cache, cfg, opts...)
	}

	return &PolicyLimiter{limiters: limiters}
}

// Limiter returns the limiter backing scope.
func (l *PolicyLimiter) Limiter(scope Scope) (*SlidingWindowLimiter, bool) {
	limiter, ok := l.limiters[scope]

	return limiter, ok
}

// Allow checks scopes in order and stops at the first one that rejects.
// ScopeAnon is skipped for authenticated callers and scopes missing from the
// policy are ignored. Scopes checked before a rejection keep their recorded
// request.
func (l *PolicyLimiter) Allow(ctx context.Context, identity Identity, scopes []Scope) (bool, *LimitExceeded, error) {
	for _, scope := range scopes {
		if scope == ScopeAnon && identity.Authenticated {
			continue
		}

		limiter, ok := l.limiters[scope]
		if !ok {
			continue
		}

		decision, err := limiter.Allow(ctx, identity.Key())
		if err != nil {
			return false, nil, err
		}

		if !decision.Allowed {
			return false, &LimitExceeded{
				Scope:    scope,
				Config:   limiter.Config(),
				Decision: decision,
			}, nil
		}
	}

	return true, nil, nil
}
