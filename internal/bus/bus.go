// Package bus is the publish/subscribe transport between the API side and
// the ML worker pool. Delivery is fire-and-forget: a publish to a channel
// with no subscribers silently drops the message, and there is no ordering
// guarantee across channels. Callers that must not lose messages probe
// NumSubscribers before publishing.
package bus

import (
	"context"
	"errors"
)

// ErrSubscriptionClosed is returned by Next once a subscription has been
// closed.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Message is a single payload received from a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Bus is the channel-bus handle. Implementations must be safe for concurrent
// use.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	NumSubscribers(ctx context.Context, channel string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Subscription is a single-channel consumer. Next blocks until a message
// arrives, the context is done, or the subscription is closed.
type Subscription interface {
	Next(ctx context.Context) (*Message, error)
	Close() error
}
