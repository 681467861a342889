package analytics

import (
	"github.com/serroba/persona-api/internal/messaging"
	"go.uber.org/zap"
)

// RegisterConsumers adds one consumer per analytics topic to group, each
// persisting its events through store.
func RegisterConsumers(group *messaging.ConsumerGroup, store Store, logger *zap.Logger) {
	subscriber := group.Subscriber()

	group.Add(messaging.NewConsumer(subscriber, TopicPersonaAccessed, store.SavePersonaAccessed, logger))
	group.Add(messaging.NewConsumer(subscriber, TopicRateLimited, store.SaveRateLimited, logger))
}
