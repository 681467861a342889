package cache

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/persona-api/internal/ratelimit"
)

type memoryEntry struct {
	timestamps []float64
	expiresAt  time.Time
}

// Memory is an in-process implementation of ratelimit.Cache with per-key expiry.
// Expired entries are dropped lazily when read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMemoryClock replaces time.Now as the cache's time source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return []float64{}, nil
	}

	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)

		return []float64{}, nil
	}

	out := make([]float64, len(entry.timestamps))
	copy(out, entry.timestamps)

	return out, nil
}

// Set stores a copy of timestamps. A non-positive ttl keeps the entry until overwritten.
func (m *Memory) Set(_ context.Context, key string, timestamps []float64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]float64, len(timestamps))
	copy(stored, timestamps)

	entry := memoryEntry{timestamps: stored}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.entries[key] = entry

	return nil
}

// Compile-time check.
var _ ratelimit.Cache = (*Memory)(nil)
