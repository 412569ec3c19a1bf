package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for FCM delivery failures.
var (
	ErrFCMUnreachable = errors.New("fcm unreachable")
	ErrFCMRejected    = errors.New("fcm rejected notification")
)

// FCM sends notifications through the Firebase Cloud Messaging legacy HTTP
// API.
type FCM struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

// NewFCM creates an FCM notifier posting to endpoint with server-key
// authorization.
func NewFCM(endpoint, serverKey string, timeout time.Duration) *FCM {
	return &FCM{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

func (f *FCM) Send(ctx context.Context, token string, n Notification) error {
	body, err := json.Marshal(fcmMessage{
		To:           token,
		Notification: fcmNotification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+f.serverKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrFCMRejected, resp.StatusCode)
	}
	return nil
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", ErrFCMUnreachable, err)
	}
	return fmt.Errorf("%w: %v", ErrFCMUnreachable, err)
}
