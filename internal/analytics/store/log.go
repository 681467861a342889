package store

import (
	"context"

	"github.com/serroba/persona-api/internal/analytics"
	"go.uber.org/zap"
)

// Log is an analytics.Store that records events as structured log lines.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a new logging analytics store.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SavePersonaAccessed(_ context.Context, event *analytics.PersonaAccessedEvent) error {
	l.logger.Info("persona accessed",
		zap.String("eventId", event.EventID),
		zap.Int64("personaId", event.PersonaID),
		zap.String("via", event.Via),
		zap.String("clientIp", event.ClientIP),
		zap.Time("accessedAt", event.AccessedAt),
	)

	return nil
}

func (l *Log) SaveRateLimited(_ context.Context, event *analytics.RateLimitedEvent) error {
	l.logger.Info("request rate limited",
		zap.String("eventId", event.EventID),
		zap.String("clientId", event.ClientID),
		zap.String("path", event.Path),
		zap.String("scope", event.Scope),
		zap.Float64("retryAfter", event.RetryAfter),
		zap.Time("rejectedAt", event.RejectedAt),
	)

	return nil
}

// Compile-time check.
var _ analytics.Store = (*Log)(nil)
