// Package events publishes client session and notification events and
// adapts them to the transport's navigation and notification sinks.
package events

// Notification levels.
const (
	LevelError = "error"
	LevelInfo  = "info"
)

// SessionExpiredEvent is emitted when the server rejects the session and the
// user must log in again.
type SessionExpiredEvent struct {
	Profile    string `json:"profile"`
	LoginRoute string `json:"loginRoute"`
	Timestamp  string `json:"timestamp"`
}

// NotificationEvent carries a user-facing message.
type NotificationEvent struct {
	Profile   string `json:"profile"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
