// Package notify delivers push notifications to users' registered devices.
// Delivery is best effort: callers attach notifications to job transitions
// and must not let a failed or slow send roll back the transition.
package notify

import "context"

// Notification is a push message delivered to a single device.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier sends a notification to the device identified by its registration
// token. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, token string, n Notification) error
}

// Nop discards all notifications. Used when no push credentials are
// configured.
type Nop struct{}

func (Nop) Send(ctx context.Context, token string, n Notification) error {
	return nil
}
