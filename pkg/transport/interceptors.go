package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Call is the per-dispatch state shared by interceptors. HTTP and Response
// are replaced on every attempt.
type Call struct {
	// Request is the dispatch's private copy of the caller's descriptor.
	Request *Request
	// HTTP is the outbound request of the current attempt.
	HTTP *http.Request
	// Response is nil when the attempt produced no response.
	Response *Response
	// Data is the unwrapped envelope payload after a successful attempt.
	Data json.RawMessage
	// Attempt counts from 1.
	Attempt int

	key    RequestKey
	target string
	body   []byte
}

// Key returns the registry key of the dispatch.
func (c *Call) Key() RequestKey {
	return c.key
}

// RequestInterceptor mutates the outbound request before it is sent. A
// returned error aborts the attempt.
type RequestInterceptor func(ctx context.Context, call *Call) error

// ResponseInterceptor observes or rewrites the outcome of an attempt. err is
// the outcome so far; the returned error replaces it.
type ResponseInterceptor func(ctx context.Context, call *Call, err error) error

func (c *Client) attachToken(ctx context.Context, call *Call) error {
	token, err := c.credentials.Token(ctx)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to read credentials, sending unauthenticated: %v", logPrefix, err))
		return nil
	}
	if token != "" {
		call.HTTP.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) attachRequestID(_ context.Context, call *Call) error {
	if c.requestIDHeader == "" || call.HTTP.Header.Get(c.requestIDHeader) != "" {
		return nil
	}
	call.HTTP.Header.Set(c.requestIDHeader, uuid.NewString())
	return nil
}

// unwrapEnvelope turns a 2xx body into the payload or a rejection.
func (c *Client) unwrapEnvelope(_ context.Context, call *Call, err error) error {
	if err != nil || call.Response == nil {
		return err
	}
	if call.Request.Method == http.MethodHead {
		call.Data = nil
		return nil
	}
	env, perr := parseEnvelope(call.Response.Body)
	if perr != nil {
		return newMalformedError(call.Response, perr)
	}
	if env.Code != EnvelopeSuccess {
		if env.Code == http.StatusUnauthorized {
			return newSessionExpiredError(call.Response)
		}
		return newBusinessError(env.Code, env.Message, call.Response)
	}
	call.Data = env.Data
	return nil
}

// expireSession clears credentials and navigates to login on any
// session-expiry rejection, whether it came from the status or the envelope.
func (c *Client) expireSession(ctx context.Context, call *Call, err error) error {
	if !IsSessionExpired(err) {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	if cerr := c.credentials.Clear(ctx); cerr != nil {
		slog.Error(fmt.Sprintf("%s - failed to clear credentials: %v", logPrefix, cerr))
	}
	slog.Info(fmt.Sprintf("%s - session expired on %s %s, redirecting to login", logPrefix, call.Request.Method, call.Request.URL))
	c.navigator.GoToLogin(ctx)
	return err
}
