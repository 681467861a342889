package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SavePersonaAccessed(ctx context.Context, event *PersonaAccessedEvent) error
	SaveRateLimited(ctx context.Context, event *RateLimitedEvent) error
}
