package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/persona-api/internal/ratelimit"
)

// Redis stores client windows as JSON arrays in Redis string keys.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed cache.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]float64, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []float64{}, nil
		}

		return nil, err
	}

	var timestamps []float64
	if err := json.Unmarshal(payload, &timestamps); err != nil {
		return nil, fmt.Errorf("decode window %q: %w", key, err)
	}

	return timestamps, nil
}

// Set writes timestamps with a fresh expiry. SET with EX replaces value and TTL in one command.
func (r *Redis) Set(ctx context.Context, key string, timestamps []float64, ttl time.Duration) error {
	payload, err := json.Marshal(timestamps)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, payload, ttl).Err()
}

// Shutdown is a no-op for Redis (client managed externally).
func (r *Redis) Shutdown() error {
	return nil
}

// Compile-time check.
var _ ratelimit.Cache = (*Redis)(nil)
