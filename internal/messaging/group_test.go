package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/persona-api/internal/analytics"
	"github.com/serroba/persona-api/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newAnalyticsGroup wires one consumer per analytics topic onto broker.
func newAnalyticsGroup(broker *streamBroker) (*messaging.ConsumerGroup, chan *analytics.PersonaAccessedEvent, chan *analytics.RateLimitedEvent) {
	accessed := make(chan *analytics.PersonaAccessedEvent, 10)
	rejected := make(chan *analytics.RateLimitedEvent, 10)

	group := messaging.NewConsumerGroup(broker, zap.NewNop())
	group.Add(messaging.NewConsumer(group.Subscriber(), analytics.TopicPersonaAccessed,
		func(_ context.Context, event *analytics.PersonaAccessedEvent) error {
			accessed <- event

			return nil
		}, zap.NewNop()))
	group.Add(messaging.NewConsumer(group.Subscriber(), analytics.TopicRateLimited,
		func(_ context.Context, event *analytics.RateLimitedEvent) error {
			rejected <- event

			return nil
		}, zap.NewNop()))

	return group, accessed, rejected
}

func TestConsumerGroup_Start(t *testing.T) {
	t.Run("routes each topic to its consumer", func(t *testing.T) {
		broker := newStreamBroker()
		group, accessed, rejected := newAnalyticsGroup(broker)

		require.NoError(t, group.Start(context.Background()))

		defer func() { _ = group.Shutdown() }()

		publishers := analytics.NewPublishers(broker)
		ctx := context.Background()

		require.NoError(t, publishers.RateLimited(ctx, analytics.NewRateLimitedEvent("1.2.3.4", "/user/token", 12, time.Now())))
		require.NoError(t, publishers.PersonaAccessed(ctx, analytics.NewPersonaAccessedEvent(5, "owner", "1.2.3.4", "", time.Now())))

		select {
		case event := <-accessed:
			assert.Equal(t, int64(5), event.PersonaID)
		case <-time.After(time.Second):
			t.Fatal("persona access was not consumed")
		}

		select {
		case event := <-rejected:
			assert.Equal(t, "/user/token", event.Path)
		case <-time.After(time.Second):
			t.Fatal("rejection was not consumed")
		}
	})

	t.Run("stops started consumers when a later one fails", func(t *testing.T) {
		broker := newStreamBroker()
		broker.failTopic = analytics.TopicRateLimited
		group, _, _ := newAnalyticsGroup(broker)

		err := group.Start(context.Background())

		require.ErrorIs(t, err, errStreamUnavailable)
		assert.Contains(t, err.Error(), "consumer 1")

		accessedSub := broker.subscription(analytics.TopicPersonaAccessed)
		require.NotNil(t, accessedSub)
		assert.ErrorIs(t, accessedSub.Err(), context.Canceled)
	})
}

func TestConsumerGroup_Shutdown(t *testing.T) {
	t.Run("stops consumers and closes the stream", func(t *testing.T) {
		broker := newStreamBroker()
		group, _, _ := newAnalyticsGroup(broker)

		require.NoError(t, group.Start(context.Background()))
		require.NoError(t, group.Shutdown())

		assert.True(t, broker.closed)
		assert.ErrorIs(t, broker.subscription(analytics.TopicPersonaAccessed).Err(), context.Canceled)
		assert.ErrorIs(t, broker.subscription(analytics.TopicRateLimited).Err(), context.Canceled)
	})

	t.Run("reports close failure", func(t *testing.T) {
		broker := newStreamBroker()
		broker.closeErr = errors.New("redis connection reset")
		group, _, _ := newAnalyticsGroup(broker)

		require.NoError(t, group.Start(context.Background()))

		err := group.Shutdown()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis connection reset")
	})

	t.Run("exposes the shared subscriber", func(t *testing.T) {
		broker := newStreamBroker()
		group := messaging.NewConsumerGroup(broker, zap.NewNop())

		assert.Equal(t, broker, group.Subscriber())
		require.NoError(t, group.Shutdown())
		assert.True(t, broker.closed)
	})
}
