package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/apiclient/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// SessionExpiredSubject overrides the session event subject (e.g. from SESSION_EXPIRED_SUBJECT).
	SessionExpiredSubject string
	// NotificationSubject overrides the notification subject (e.g. from NOTIFICATION_SUBJECT).
	NotificationSubject string
}

// CommsPublisher publishes client events to COMMS subjects.
type CommsPublisher struct {
	nc                    *comms.Conn
	sessionExpiredSubject string
	notificationSubject   string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{
		nc:                    nc,
		sessionExpiredSubject: commsutil.SubjectSessionExpired,
		notificationSubject:   commsutil.SubjectNotification,
	}
	if opts != nil {
		if opts.SessionExpiredSubject != "" {
			p.sessionExpiredSubject = opts.SessionExpiredSubject
		}
		if opts.NotificationSubject != "" {
			p.notificationSubject = opts.NotificationSubject
		}
	}
	return p
}

// PublishSessionExpired publishes to the global session subject and to the
// profile-scoped one.
func (p *CommsPublisher) PublishSessionExpired(_ context.Context, event *SessionExpiredEvent) error {
	return p.publish(p.sessionExpiredSubject, event.Profile, event)
}

// PublishNotification publishes to the global notification subject and to
// the profile-scoped one.
func (p *CommsPublisher) PublishNotification(_ context.Context, event *NotificationEvent) error {
	return p.publish(p.notificationSubject, event.Profile, event)
}

func (p *CommsPublisher) publish(subject, profile string, event any) error {
	subjects := []string{subject}
	if scoped := commsutil.BuildProfileSubject(subject, profile); scoped != subject {
		subjects = append(subjects, scoped)
	}
	for _, s := range subjects {
		msg, err := commsutil.NewMessage(s, event)
		if err != nil {
			return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
		}
		if err := p.nc.PublishMsg(msg); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, s, err))
			return err
		}
	}
	slog.Debug(fmt.Sprintf("%s - Published event to %v", commsPublisherLogPrefix, subjects))
	return nil
}
