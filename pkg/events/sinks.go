package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/morezero/apiclient/pkg/transport"
)

const sinksLogPrefix = "events:sinks"

// DefaultLoginRoute is the login entry point announced on session expiry.
const DefaultLoginRoute = "/Login"

var (
	_ transport.NavigationSink = (*LoginRedirector)(nil)
	_ transport.Notifier       = (*ErrorNotifier)(nil)
	_ transport.Notifier       = LogNotifier{}
	_ transport.Notifier       = (*WriterNotifier)(nil)
	_ transport.Notifier       = Notifiers(nil)
)

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// LoginRedirector is the navigation sink: it announces that the user must
// go to the login route.
type LoginRedirector struct {
	publisher EventPublisher
	route     string
	profile   string
}

// NewLoginRedirector creates a LoginRedirector. An empty route uses DefaultLoginRoute.
func NewLoginRedirector(publisher EventPublisher, route, profile string) *LoginRedirector {
	if route == "" {
		route = DefaultLoginRoute
	}
	if publisher == nil {
		publisher = &NoOpPublisher{}
	}
	return &LoginRedirector{publisher: publisher, route: route, profile: profile}
}

// GoToLogin publishes a SessionExpiredEvent. Publish failures are logged.
func (r *LoginRedirector) GoToLogin(ctx context.Context) {
	event := &SessionExpiredEvent{Profile: r.profile, LoginRoute: r.route, Timestamp: now()}
	if err := r.publisher.PublishSessionExpired(ctx, event); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish session expiry: %v", sinksLogPrefix, err))
	}
}

// ErrorNotifier publishes error messages as notification events.
type ErrorNotifier struct {
	publisher EventPublisher
	profile   string
}

func NewErrorNotifier(publisher EventPublisher, profile string) *ErrorNotifier {
	if publisher == nil {
		publisher = &NoOpPublisher{}
	}
	return &ErrorNotifier{publisher: publisher, profile: profile}
}

func (n *ErrorNotifier) ShowError(ctx context.Context, message string) {
	event := &NotificationEvent{Profile: n.profile, Level: LevelError, Message: message, Timestamp: now()}
	if err := n.publisher.PublishNotification(ctx, event); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish notification: %v", sinksLogPrefix, err))
	}
}

// LogNotifier writes error messages to slog.
type LogNotifier struct{}

func (LogNotifier) ShowError(_ context.Context, message string) {
	slog.Error(fmt.Sprintf("%s - %s", sinksLogPrefix, message))
}

// WriterNotifier prints error messages for a terminal user.
type WriterNotifier struct {
	w io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) ShowError(_ context.Context, message string) {
	fmt.Fprintf(n.w, "error: %s\n", message)
}

// Notifiers fans a message out to every notifier in order.
type Notifiers []transport.Notifier

func (ns Notifiers) ShowError(ctx context.Context, message string) {
	for _, n := range ns {
		if n != nil {
			n.ShowError(ctx, message)
		}
	}
}
