package bus

import (
	"context"
	"sync"
)

const memoryBufferSize = 64

// Memory is an in-process Bus for tests and single-process development. It
// keeps the fire-and-forget semantics of the Redis bus: a publish with no
// subscribers is dropped, and a subscriber whose buffer is full loses
// messages rather than blocking the publisher.
type Memory struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySubscription)}
}

func (b *Memory) Ping(ctx context.Context) error {
	return nil
}

func (b *Memory) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[channel] {
		msg := &Message{Channel: channel, Payload: append([]byte(nil), payload...)}
		select {
		case sub.ch <- msg:
		default: // subscriber fell behind, drop
		}
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		bus:     b,
		channel: channel,
		ch:      make(chan *Message, memoryBufferSize),
	}

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	return sub, nil
}

func (b *Memory) NumSubscribers(ctx context.Context, channel string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.subs[channel])), nil
}

func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.closeOnce.Do(func() { close(sub.ch) })
		}
	}
	b.subs = make(map[string][]*memorySubscription)
	return nil
}

func (b *Memory) remove(target *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[target.channel]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type memorySubscription struct {
	bus       *Memory
	channel   string
	ch        chan *Message
	closeOnce sync.Once
}

func (s *memorySubscription) Next(ctx context.Context) (*Message, error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.bus.remove(s)
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}
