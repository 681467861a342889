package ratelimit

import "context"

// Peek returns the pruned window of clientID without recording a request.
func (l *SlidingWindowLimiter) Peek(ctx context.Context, clientID string) ([]float64, error) {
	return l.load(ctx, l.Key(clientID), epochSeconds(l.now()))
}
