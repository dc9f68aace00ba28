package transport

import (
	"context"
	"net/http"
)

// CredentialSource supplies the bearer token and forgets it on session expiry.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// NavigationSink moves the user to the login entry point.
type NavigationSink interface {
	GoToLogin(ctx context.Context)
}

// Notifier shows a user-facing error message.
type Notifier interface {
	ShowError(ctx context.Context, message string)
}

// HTTPDoer is the underlying request/response transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) ShowError(ctx context.Context, message string) { f(ctx, message) }

// NavigationFunc adapts a function to NavigationSink.
type NavigationFunc func(ctx context.Context)

func (f NavigationFunc) GoToLogin(ctx context.Context) { f(ctx) }

// StaticToken is a read-only CredentialSource; Clear is a no-op.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
func (t StaticToken) Clear(context.Context) error           { return nil }

type noOpCredentials struct{}

func (noOpCredentials) Token(context.Context) (string, error) { return "", nil }
func (noOpCredentials) Clear(context.Context) error           { return nil }

type noOpNavigator struct{}

func (noOpNavigator) GoToLogin(context.Context) {}

type noOpNotifier struct{}

func (noOpNotifier) ShowError(context.Context, string) {}
