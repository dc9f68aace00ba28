package events

import "context"

// EventPublisher is the interface for publishing client events.
type EventPublisher interface {
	PublishSessionExpired(ctx context.Context, event *SessionExpiredEvent) error
	PublishNotification(ctx context.Context, event *NotificationEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for runs without COMMS).
type NoOpPublisher struct{}

// PublishSessionExpired is a no-op.
func (p *NoOpPublisher) PublishSessionExpired(_ context.Context, _ *SessionExpiredEvent) error {
	return nil
}

// PublishNotification is a no-op.
func (p *NoOpPublisher) PublishNotification(_ context.Context, _ *NotificationEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls callback functions
// (for testing and in-process listeners). Nil callbacks are skipped.
type CallbackPublisher struct {
	onSessionExpired func(ctx context.Context, event *SessionExpiredEvent) error
	onNotification   func(ctx context.Context, event *NotificationEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(
	onSessionExpired func(ctx context.Context, event *SessionExpiredEvent) error,
	onNotification func(ctx context.Context, event *NotificationEvent) error,
) *CallbackPublisher {
	return &CallbackPublisher{onSessionExpired: onSessionExpired, onNotification: onNotification}
}

// PublishSessionExpired calls the session callback.
func (p *CallbackPublisher) PublishSessionExpired(ctx context.Context, event *SessionExpiredEvent) error {
	if p.onSessionExpired == nil {
		return nil
	}
	return p.onSessionExpired(ctx, event)
}

// PublishNotification calls the notification callback.
func (p *CallbackPublisher) PublishNotification(ctx context.Context, event *NotificationEvent) error {
	if p.onNotification == nil {
		return nil
	}
	return p.onNotification(ctx, event)
}
