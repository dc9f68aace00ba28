package transport

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RetryPolicy bounds automatic re-dispatch after an HTTP error response.
// Attempts is the number of retries after the first attempt.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Request describes one logical call. The client dispatches a private copy,
// so a Request may be reused and its RetryPolicy is never consumed.
type Request struct {
	Method string
	URL    string
	Params url.Values
	Data   any
	Header http.Header

	// DisableAutoError suppresses the Notifier for this request's failures.
	DisableAutoError bool
	Retry            *RetryPolicy

	// Timeout overrides the client timeout for each attempt when positive.
	Timeout time.Duration
}

// RequestOption mutates a Request under construction.
type RequestOption func(*Request)

// NewRequest builds a Request for method and url with the given body and options.
func NewRequest(method, url string, data any, opts ...RequestOption) *Request {
	r := &Request{
		Method: strings.ToUpper(strings.TrimSpace(method)),
		URL:    url,
		Data:   data,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// WithParams merges query parameters into the request.
func WithParams(params url.Values) RequestOption {
	return func(r *Request) {
		if len(params) == 0 {
			return
		}
		if r.Params == nil {
			r.Params = url.Values{}
		}
		for k, vv := range params {
			for _, v := range vv {
				r.Params.Add(k, v)
			}
		}
	}
}

// WithParam sets a single query parameter.
func WithParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Params == nil {
			r.Params = url.Values{}
		}
		r.Params.Set(key, value)
	}
}

// WithHeader sets a request header, overriding the client defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

// WithRetry enables automatic retry on HTTP error responses.
func WithRetry(attempts int, delay time.Duration) RequestOption {
	return func(r *Request) {
		if attempts < 0 {
			attempts = 0
		}
		if delay < 0 {
			delay = 0
		}
		r.Retry = &RetryPolicy{Attempts: attempts, Delay: delay}
	}
}

// WithoutAutoError leaves error presentation to the caller.
func WithoutAutoError() RequestOption {
	return func(r *Request) { r.DisableAutoError = true }
}

// WithRequestTimeout overrides the per-attempt timeout.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

func (r *Request) clone() *Request {
	out := *r
	out.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if r.Params != nil {
		out.Params = make(url.Values, len(r.Params))
		for k, vv := range r.Params {
			out.Params[k] = append([]string(nil), vv...)
		}
	}
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Retry != nil {
		policy := *r.Retry
		out.Retry = &policy
	}
	return &out
}
