package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/persona-api/internal/messaging"
)

// Publishers bundles the typed publish functions for every analytics topic.
type Publishers struct {
	PersonaAccessed messaging.Publish[PersonaAccessedEvent]
	RateLimited     messaging.Publish[RateLimitedEvent]
}

// NewPublishers binds each topic to publisher.
func NewPublishers(publisher message.Publisher) Publishers {
	return Publishers{
		PersonaAccessed: messaging.NewPublishFunc[PersonaAccessedEvent](publisher, TopicPersonaAccessed),
		RateLimited:     messaging.NewPublishFunc[RateLimitedEvent](publisher, TopicRateLimited),
	}
}

// DiscardPublishers returns publishers that drop every event.
func DiscardPublishers() Publishers {
	return Publishers{
		PersonaAccessed: messaging.Discard[PersonaAccessedEvent](),
		RateLimited:     messaging.Discard[RateLimitedEvent](),
	}
}
