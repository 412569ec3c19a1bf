package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis implements Bus on Redis pub/sub using go-redis/v9.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis bus from a Redis URL.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func (b *Redis) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription and waits for the server's confirmation, so
// that a NumSubscribers probe issued afterwards already counts it.
func (b *Redis) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}
	return &redisSubscription{sub: sub}, nil
}

// NumSubscribers reports how many clients are subscribed to the channel.
func (b *Redis) NumSubscribers(ctx context.Context, channel string) (int64, error) {
	counts, err := b.client.PubSubNumSub(ctx, channel).Result()
	if err != nil {
		return 0, err
	}
	return counts[channel], nil
}

func (b *Redis) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	sub *redis.PubSub
}

func (s *redisSubscription) Next(ctx context.Context) (*Message, error) {
	msg, err := s.sub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}, nil
}

func (s *redisSubscription) Close() error {
	return s.sub.Close()
}
