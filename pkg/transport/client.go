package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

const logPrefix = "transport:client"

const (
	DefaultBaseURL          = "http://localhost:9090"
	DefaultTimeout          = 15 * time.Second
	DefaultMaxResponseBytes = 10 << 20
)

// Params holds the construction inputs bound once for the client's lifetime.
// Nil collaborators become no-ops.
type Params struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials CredentialSource
	Navigator   NavigationSink
	Notifier    Notifier
}

// Option customizes a Client.
type Option func(*Client)

// WithDoer replaces the underlying transport (default: a plain http.Client).
func WithDoer(doer HTTPDoer) Option {
	return func(c *Client) { c.doer = doer }
}

// WithBaseURL overrides Params.BaseURL.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithTimeout overrides Params.Timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDefaultHeader sets a header sent on every request.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithCircuitBreaker wraps the transport in a circuit breaker.
func WithCircuitBreaker(s BreakerSettings) Option {
	return func(c *Client) { c.breaker = &s }
}

// WithRequestID stamps each attempt with a fresh uuid under header.
func WithRequestID(header string) Option {
	return func(c *Client) { c.requestIDHeader = header }
}

// WithRequestInterceptor appends an interceptor after the built-in ones.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(c *Client) { c.extraRequest = append(c.extraRequest, i) }
}

// WithResponseInterceptor appends an interceptor after the built-in ones.
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(c *Client) { c.extraResponse = append(c.extraResponse, i) }
}

// WithMaxResponseBytes caps the response body size.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) { c.maxResponseBytes = n }
}

// Client is the shared transport. It is safe for concurrent use.
type Client struct {
	baseURL          string
	timeout          time.Duration
	doer             HTTPDoer
	header           http.Header
	requestIDHeader  string
	breaker          *BreakerSettings
	maxResponseBytes int64

	credentials CredentialSource
	navigator   NavigationSink
	notifier    Notifier

	extraRequest  []RequestInterceptor
	extraResponse []ResponseInterceptor

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor

	pending *pendingRegistry
}

// New creates a Client from p and opts.
func New(p Params, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:          p.BaseURL,
		timeout:          p.Timeout,
		header:           http.Header{"Content-Type": []string{"application/json"}},
		maxResponseBytes: DefaultMaxResponseBytes,
		credentials:      p.Credentials,
		navigator:        p.Navigator,
		notifier:         p.Notifier,
		pending:          newPendingRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s - invalid base URL %q", logPrefix, c.baseURL)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxResponseBytes <= 0 {
		c.maxResponseBytes = DefaultMaxResponseBytes
	}
	if c.credentials == nil {
		c.credentials = noOpCredentials{}
	}
	if c.navigator == nil {
		c.navigator = noOpNavigator{}
	}
	if c.notifier == nil {
		c.notifier = noOpNotifier{}
	}
	if c.doer == nil {
		c.doer = &http.Client{}
	}
	if c.breaker != nil {
		c.doer = newBreakerDoer(c.doer, *c.breaker)
	}

	c.requestInterceptors = append([]RequestInterceptor{c.attachToken, c.attachRequestID}, c.extraRequest...)
	c.responseInterceptors = append([]ResponseInterceptor{c.unwrapEnvelope, c.expireSession}, c.extraResponse...)

	slog.Debug(fmt.Sprintf("%s - client created for %s (timeout %s)", logPrefix, c.baseURL, c.timeout))
	return c, nil
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request dispatches req and resolves with the envelope's data. Every
// rejection is a *Error. Unless req.DisableAutoError is set, non-canceled
// rejections are shown through the Notifier before returning.
func (c *Client) Request(ctx context.Context, req *Request) (json.RawMessage, error) {
	if req == nil {
		return nil, c.settle(ctx, http.MethodGet, false, newInvalidRequestError(errors.New("nil request")))
	}
	call := &Call{Request: req.clone()}
	nonce := ""
	if isBinaryBody(call.Request.Data) {
		nonce = uuid.NewString()
	}
	call.key = registryKey(call.Request, nonce)

	data, err := c.dispatch(ctx, call)
	return data, c.settle(ctx, call.Request.Method, call.Request.DisableAutoError, err)
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodGet, url, nil, opts...))
}

func (c *Client) Post(ctx context.Context, url string, data any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodPost, url, data, opts...))
}

func (c *Client) Put(ctx context.Context, url string, data any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodPut, url, data, opts...))
}

func (c *Client) Patch(ctx context.Context, url string, data any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodPatch, url, data, opts...))
}

func (c *Client) Delete(ctx context.Context, url string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodDelete, url, nil, opts...))
}

func (c *Client) Head(ctx context.Context, url string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodHead, url, nil, opts...))
}

func (c *Client) Options(ctx context.Context, url string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Request(ctx, NewRequest(http.MethodOptions, url, nil, opts...))
}

// CancelAllRequests aborts every in-flight request and empties the registry.
func (c *Client) CancelAllRequests() {
	n := c.pending.cancelAll()
	slog.Debug(fmt.Sprintf("%s - canceled %d pending requests", logPrefix, n))
}

// CancelRequest aborts the in-flight request matching req's key. Requests
// with binary bodies are never matched.
func (c *Client) CancelRequest(req *Request) bool {
	if req == nil || isBinaryBody(req.Data) {
		return false
	}
	return c.pending.cancel(KeyOf(req))
}

// PendingRequestCount reports the number of registry entries.
func (c *Client) PendingRequestCount() int {
	return c.pending.len()
}

func (c *Client) settle(ctx context.Context, method string, disableAutoError bool, err error) error {
	recordRequest(method, err)
	if err == nil {
		return nil
	}
	e, ok := AsError(err)
	if !ok {
		e = newNetworkError(err)
	}
	if e.IsCanceled {
		slog.Debug(fmt.Sprintf("%s - %s request canceled", logPrefix, method))
		return e
	}
	slog.Warn(fmt.Sprintf("%s - %s request failed: %v", logPrefix, method, e))
	if !disableAutoError {
		c.notifier.ShowError(context.WithoutCancel(ctx), e.Message)
	}
	return e
}

// dispatch runs attempts until one settles, retrying HTTP error responses
// while the policy allows.
func (c *Client) dispatch(ctx context.Context, call *Call) (json.RawMessage, error) {
	body, err := encodeBody(call.Request.Data)
	if err != nil {
		return nil, newInvalidRequestError(err)
	}
	call.body = body

	target, err := c.resolveURL(call.Request)
	if err != nil {
		return nil, newInvalidRequestError(err)
	}
	call.target = target

	backoff := newRetryBackoff(call.Request.Retry)
	var parked *pendingEntry
	for {
		call.Attempt++
		err := c.attempt(ctx, call, parked)
		if err == nil {
			return call.Data, nil
		}
		if !retryable(err) {
			return nil, err
		}
		delay, stop := backoff.Next()
		if stop {
			return nil, err
		}
		recordRetry(call.Request.Method)
		slog.Debug(fmt.Sprintf("%s - retrying %s %s in %s (attempt %d): %v", logPrefix, call.Request.Method, call.target, delay, call.Attempt+1, err))

		parked, err = c.waitRetry(ctx, call.key, delay)
		if err != nil {
			return nil, err
		}
	}
}

// attempt performs one round trip through both interceptor chains.
func (c *Client) attempt(ctx context.Context, call *Call, prev *pendingEntry) error {
	timeout := c.timeout
	if call.Request.Timeout > 0 {
		timeout = call.Request.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entry, superseded, err := c.pending.register(call.key, cancel, prev)
	if err != nil {
		return newCanceledError(err)
	}
	defer c.pending.release(call.key, entry)
	if superseded {
		slog.Debug(fmt.Sprintf("%s - canceled pending duplicate of %s %s", logPrefix, call.Request.Method, call.Request.URL))
	}

	call.Response = nil
	call.Data = nil
	call.HTTP, err = c.buildHTTPRequest(attemptCtx, call)
	if err != nil {
		return newInvalidRequestError(err)
	}
	for _, intercept := range c.requestInterceptors {
		if err := intercept(attemptCtx, call); err != nil {
			if _, ok := AsError(err); ok {
				return err
			}
			return newInvalidRequestError(err)
		}
	}

	outcome := c.roundTrip(attemptCtx, call)
	c.pending.release(call.key, entry)
	// a superseded or manually canceled attempt settles as canceled even if
	// its response already arrived
	if errors.Is(attemptCtx.Err(), context.Canceled) && !IsCanceled(outcome) {
		outcome = newCanceledError(attemptCtx.Err())
	}

	for _, intercept := range c.responseInterceptors {
		outcome = intercept(ctx, call, outcome)
	}
	return outcome
}

// roundTrip sends call.HTTP and classifies the raw result.
func (c *Client) roundTrip(ctx context.Context, call *Call) error {
	resp, err := c.doer.Do(call.HTTP)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	call.Response = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if int64(len(raw)) > c.maxResponseBytes {
		call.Response.Body = raw[:c.maxResponseBytes]
		return newMalformedError(call.Response, fmt.Errorf("response body exceeds %d bytes", c.maxResponseBytes))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return newSessionExpiredError(call.Response)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return newHTTPError(call.Response)
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return newCanceledError(err)
	}
	return newNetworkError(err)
}

func (c *Client) buildHTTPRequest(ctx context.Context, call *Call) (*http.Request, error) {
	var body io.Reader
	if call.body != nil {
		body = bytes.NewReader(call.body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Request.Method, call.target, body)
	if err != nil {
		return nil, err
	}
	for k, vv := range c.header {
		req.Header[k] = append([]string(nil), vv...)
	}
	for k, vv := range call.Request.Header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vv...)
	}
	if call.body == nil {
		req.Header.Del("Content-Type")
	}
	return req, nil
}

// resolveURL joins a relative URL onto the base URL and merges Params into
// the query string. Absolute URLs are used as given.
func (c *Client) resolveURL(r *Request) (string, error) {
	raw := strings.TrimSpace(r.URL)
	target := c.baseURL
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		target = raw
	} else if raw != "" {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(raw, "/")
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%s - invalid request URL %q: %w", logPrefix, r.URL, err)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vv := range r.Params {
			for _, v := range vv {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody materializes the body once so every attempt resends the same
// bytes. Readers are drained on the first dispatch.
func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case json.RawMessage:
		return b, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read request body: %w", logPrefix, err)
		}
		return data, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode request body: %w", logPrefix, err)
	}
	return data, nil
}
