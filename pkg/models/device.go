package models

import "time"

// Device is a push-notification registration owned by a user. Token is the
// FCM registration token the client app reported.
type Device struct {
	ID        int64     `db:"id"         json:"id"`
	UserID    int64     `db:"user_id"    json:"user_id"`
	Token     string    `db:"token"      json:"-"`
	Name      string    `db:"name"       json:"name,omitempty"`
	Active    bool      `db:"active"     json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
