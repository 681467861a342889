package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/persona-api/internal/cache"
	"github.com/serroba/persona-api/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(clock *fakeClock) *ratelimit.PolicyLimiter {
	memCache := cache.NewMemory(cache.WithMemoryClock(clock.Now))

	return ratelimit.NewPolicyLimiter(memCache, ratelimit.Policy{
		Limits: map[ratelimit.Scope]ratelimit.Config{
			ratelimit.ScopeAnon:  {MaxRequests: 2, Window: time.Hour},
			ratelimit.ScopeUser:  {MaxRequests: 3, Window: time.Hour},
			ratelimit.ScopeLogin: {MaxRequests: 5, Window: time.Minute, KeyPrefix: ratelimit.DefaultKeyPrefix},
			ratelimit.ScopeLow:   {MaxRequests: 1, Window: 24 * time.Hour},
		},
	}, ratelimit.WithClock(clock.Now))
}

func TestIdentity_Key(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.2.3.4", ratelimit.Identity{ClientID: "1.2.3.4"}.Key())
	assert.Equal(t, "user:7", ratelimit.Identity{ClientID: "1.2.3.4", UserID: 7, Authenticated: true}.Key())
}

func TestNewPolicyLimiter(t *testing.T) {
	t.Parallel()

	policy := newTestPolicy(newFakeClock())

	t.Run("scopes without a prefix get a throttle prefix", func(t *testing.T) {
		t.Parallel()

		low, ok := policy.Limiter(ratelimit.ScopeLow)
		require.True(t, ok)
		assert.Equal(t, "throttle:low:1.2.3.4", low.Key("1.2.3.4"))
	})

	t.Run("explicit prefix is kept", func(t *testing.T) {
		t.Parallel()

		login, ok := policy.Limiter(ratelimit.ScopeLogin)
		require.True(t, ok)
		assert.Equal(t, "rl:1.2.3.4", login.Key("1.2.3.4"))
		assert.Equal(t, 5, login.Config().MaxRequests)
	})

	t.Run("unknown scope", func(t *testing.T) {
		t.Parallel()

		_, ok := policy.Limiter(ratelimit.Scope("burst"))
		assert.False(t, ok)
	})
}

func TestPolicyLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	anon := ratelimit.Identity{ClientID: "1.2.3.4"}
	user := ratelimit.Identity{ClientID: "1.2.3.4", UserID: 7, Authenticated: true}

	t.Run("anon scope rejects past its limit", func(t *testing.T) {
		policy := newTestPolicy(newFakeClock())
		scopes := []ratelimit.Scope{ratelimit.ScopeAnon}

		for range 2 {
			allowed, exceeded, err := policy.Allow(ctx, anon, scopes)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Nil(t, exceeded)
		}

		allowed, exceeded, err := policy.Allow(ctx, anon, scopes)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
		assert.Equal(t, ratelimit.ScopeAnon, exceeded.Scope)
		assert.Equal(t, 2, exceeded.Config.MaxRequests)
		assert.Equal(t, 2, exceeded.Decision.Count)
		assert.InDelta(t, 3600.0, exceeded.Decision.RetryAfterSeconds(), 0.001)
	})

	t.Run("anon scope does not apply to authenticated callers", func(t *testing.T) {
		policy := newTestPolicy(newFakeClock())

		for range 10 {
			allowed, _, err := policy.Allow(ctx, user, []ratelimit.Scope{ratelimit.ScopeAnon})
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("user scope counts per user, not per address", func(t *testing.T) {
		policy := newTestPolicy(newFakeClock())
		scopes := []ratelimit.Scope{ratelimit.ScopeUser}
		sameAddress := ratelimit.Identity{ClientID: "1.2.3.4", UserID: 8, Authenticated: true}

		for range 3 {
			allowed, _, err := policy.Allow(ctx, user, scopes)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, _, err := policy.Allow(ctx, user, scopes)
		require.NoError(t, err)
		assert.False(t, allowed)

		allowed, _, err = policy.Allow(ctx, sameAddress, scopes)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("first rejecting scope is reported", func(t *testing.T) {
		policy := newTestPolicy(newFakeClock())
		scopes := []ratelimit.Scope{ratelimit.ScopeUser, ratelimit.ScopeLow}

		allowed, _, err := policy.Allow(ctx, user, scopes)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, exceeded, err := policy.Allow(ctx, user, scopes)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
		assert.Equal(t, ratelimit.ScopeLow, exceeded.Scope)
	})

	t.Run("windows reopen after the scope window", func(t *testing.T) {
		clock := newFakeClock()
		policy := newTestPolicy(clock)
		scopes := []ratelimit.Scope{ratelimit.ScopeLow}

		allowed, _, err := policy.Allow(ctx, anon, scopes)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, _, err = policy.Allow(ctx, anon, scopes)
		require.NoError(t, err)
		assert.False(t, allowed)

		clock.Advance(24 * time.Hour)

		allowed, _, err = policy.Allow(ctx, anon, scopes)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("unknown and empty scopes allow", func(t *testing.T) {
		policy := newTestPolicy(newFakeClock())

		allowed, exceeded, err := policy.Allow(ctx, anon, []ratelimit.Scope{"burst"})
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Nil(t, exceeded)

		allowed, _, err = policy.Allow(ctx, anon, nil)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("cache failure is returned", func(t *testing.T) {
		policy := ratelimit.NewPolicyLimiter(&failingCache{getErr: errCacheDown}, ratelimit.Policy{
			Limits: map[ratelimit.Scope]ratelimit.Config{ratelimit.ScopeLow: {MaxRequests: 1, Window: time.Hour}},
		})

		allowed, exceeded, err := policy.Allow(ctx, anon, []ratelimit.Scope{ratelimit.ScopeLow})

		require.ErrorIs(t, err, errCacheDown)
		assert.False(t, allowed)
		assert.Nil(t, exceeded)
	})
}
