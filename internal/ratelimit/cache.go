package ratelimit

import (
	"context"
	"time"
)

// Cache is the shared key-value store holding client windows.
type Cache interface {
	// Get returns the timestamps stored under key, or an empty slice when the key is absent.
	Get(ctx context.Context, key string) ([]float64, error)
	// Set stores timestamps under key and resets its expiry to ttl.
	Set(ctx context.Context, key string, timestamps []float64, ttl time.Duration) error
}
