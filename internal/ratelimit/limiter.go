package ratelimit

import (
	"context"
	"math"
	"strconv"
	"time"
)

const (
	// DefaultMaxRequests is the number of accepted requests allowed per window.
	DefaultMaxRequests = 5
	// DefaultWindow is the width of the trailing window.
	DefaultWindow = 60 * time.Second
	// DefaultKeyPrefix namespaces client windows in the shared cache.
	DefaultKeyPrefix = "rl:"
)

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow records a request from clientID when it fits in the window.
	Allow(ctx context.Context, clientID string) (Decision, error)
}

// Config holds the immutable settings of a limiter.
type Config struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultConfig returns 5 requests per 60 seconds under the "rl:" prefix.
func DefaultConfig() Config {
	return Config{
		MaxRequests: DefaultMaxRequests,
		Window:      DefaultWindow,
		KeyPrefix:   DefaultKeyPrefix,
	}
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	// Count is the number of timestamps in the window after the call.
	Count int
	// RetryAfter is how long until the earliest timestamp leaves the window.
	// Zero when the request was allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter in seconds rounded to two decimals.
func (d Decision) RetryAfterSeconds() float64 {
	return math.Round(d.RetryAfter.Seconds()*100) / 100
}

// RetryAfterHeader returns RetryAfter as whole seconds, truncated.
func (d Decision) RetryAfterHeader() string {
	return strconv.Itoa(int(d.RetryAfter.Seconds()))
}

// SlidingWindowLimiter implements rate limiting using a sliding window algorithm.
//
// Every call is a read-prune-check-write cycle against the cache. The read and
// the write are separate operations, so two concurrent requests from the same
// client can both observe the same window, both pass, and one append is lost.
// The limit is therefore best effort. Stricter enforcement needs an atomic
// primitive on the backend (per-key lock, list push with trim, or a counter).
type SlidingWindowLimiter struct {
	cache  Cache
	config Config
	now    func() time.Time
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithClock replaces time.Now as the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		l.now = now
	}
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
// Non-positive limits and an empty prefix fall back to DefaultConfig values.
func NewSlidingWindowLimiter(cache Cache, config Config, opts ...Option) *SlidingWindowLimiter {
	defaults := DefaultConfig()

	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	if config.Window <= 0 {
		config.Window = defaults.Window
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}

	l := &SlidingWindowLimiter{
		cache:  cache,
		config: config,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Config returns the limiter settings.
func (l *SlidingWindowLimiter) Config() Config {
	return l.config
}

// Key returns the cache key holding the window of clientID.
func (l *SlidingWindowLimiter) Key(clientID string) string {
	return l.config.KeyPrefix + clientID
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	key := l.Key(clientID)
	now := epochSeconds(l.now())

	window, err := l.load(ctx, key, now)
	if err != nil {
		return Decision{}, err
	}

	if len(window) >= l.config.MaxRequests {
		retry := retryAfter(window, now, l.config.Window.Seconds())

		return Decision{
			Allowed:    false,
			Count:      len(window),
			RetryAfter: time.Duration(retry * float64(time.Second)),
		}, nil
	}

	window = append(window, now)

	if err := l.cache.Set(ctx, key, window, l.config.Window); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, Count: len(window)}, nil
}

func (l *SlidingWindowLimiter) load(ctx context.Context, key string, now float64) ([]float64, error) {
	stored, err := l.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	window := l.config.Window.Seconds()
	pruned := make([]float64, 0, len(stored)+1)

	for _, ts := range stored {
		if now-ts < window {
			pruned = append(pruned, ts)
		}
	}

	return pruned, nil
}

// retryAfter is the time until the earliest stamp leaves the window, bounded
// to [0, window]. Stamps written by a replica whose clock runs ahead can sit
// in the future; they still count against the client but cannot push the
// hint past one window.
func retryAfter(window []float64, now, width float64) float64 {
	earliest := window[0]
	for _, ts := range window[1:] {
		earliest = math.Min(earliest, ts)
	}

	return math.Min(width, math.Max(0, width-(now-earliest)))
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
