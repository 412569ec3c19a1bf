package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishSubscribe(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, b.Publish(ctx, "jobs", []byte(`{"job":7}`)))

	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jobs", msg.Channel)
	assert.JSONEq(t, `{"job":7}`, string(msg.Payload))
}

func TestMemoryPublishWithoutSubscribersDrops(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	// fire-and-forget: no error, nothing retained
	require.NoError(t, b.Publish(ctx, "jobs", []byte("dropped")))

	sub, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	defer sub.Close()

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = sub.Next(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryNumSubscribers(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	n, err := b.NumSubscribers(ctx, "jobs")
	require.NoError(t, err)
	assert.Zero(t, n)

	sub1, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	sub2, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)

	n, err = b.NumSubscribers(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// subscribers on other channels are not counted
	n, err = b.NumSubscribers(ctx, "results")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, sub1.Close())
	n, err = b.NumSubscribers(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, sub2.Close())
	n, err = b.NumSubscribers(ctx, "jobs")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryFanOut(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	sub1, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	defer sub1.Close()
	sub2, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	defer sub2.Close()

	require.NoError(t, b.Publish(ctx, "jobs", []byte("x")))

	for _, sub := range []Subscription{sub1, sub2} {
		msg, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), msg.Payload)
	}
}

func TestMemoryNextAfterClose(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestMemoryNextHonorsContextCancel(t *testing.T) {
	b := NewMemory()
	sub, err := b.Subscribe(context.Background(), "jobs")
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := sub.Next(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after cancel")
	}
}

func TestMemoryBusClose(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "jobs")
	require.NoError(t, err)

	require.NoError(t, b.Close())

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}
