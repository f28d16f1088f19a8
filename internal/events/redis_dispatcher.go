package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDispatcher fans events out through a Redis pub/sub channel so every
// service instance sharing the remote backend sees every change. Handlers
// run when the message comes back from Redis, including on the publishing
// instance.
type RedisDispatcher struct {
	client  *redis.Client
	channel string
	local   *inMemoryDispatcher
	logger  *zap.Logger
}

// NewRedisDispatcher creates a dispatcher bound to channel. Call Run to start
// delivering received events to subscribers.
func NewRedisDispatcher(client *redis.Client, channel string, logger *zap.Logger) *RedisDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDispatcher{
		client:  client,
		channel: channel,
		local:   newInMemoryDispatcher(logger),
		logger:  logger,
	}
}

// Publish serialises the event onto the channel.
func (d *RedisDispatcher) Publish(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := d.client.Publish(ctx, d.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe registers a handler for events received from the channel.
func (d *RedisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}

// Run consumes the channel until ctx is cancelled.
func (d *RedisDispatcher) Run(ctx context.Context) error {
	pubsub := d.client.Subscribe(ctx, d.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", d.channel, err)
	}
	d.logger.Info("listening for ticket events", zap.String("channel", d.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.deliver(ctx, msg.Payload)
		}
	}
}

func (d *RedisDispatcher) deliver(ctx context.Context, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		d.logger.Warn("dropping undecodable event", zap.Error(err))
		return
	}
	_ = d.local.Publish(ctx, event)
}
