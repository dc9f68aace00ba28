package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a rejected request.
type ErrorKind string

const (
	KindCanceled       ErrorKind = "canceled"
	KindNetwork        ErrorKind = "network"
	KindSessionExpired ErrorKind = "session_expired"
	KindBusiness       ErrorKind = "business"
	KindHTTP           ErrorKind = "http"
	KindMalformed      ErrorKind = "malformed"
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Codes used when no HTTP status applies.
const (
	CodeNetworkError      = -1
	CodeCanceled          = -2
	CodeMalformedResponse = -3
	CodeInvalidRequest    = -4
)

// User-facing messages.
const (
	MessageCanceled          = "request canceled"
	MessageNetworkError      = "network error"
	MessageSessionExpired    = "session expired"
	MessageRequestFailed     = "request failed"
	MessageMalformedResponse = "malformed response"
	MessageInvalidRequest    = "invalid request"
)

// Response is the raw transport response attached to HTTP errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Error is the only error shape returned by Client dispatch.
type Error struct {
	Code       int       `json:"code"`
	Message    string    `json:"message"`
	IsCanceled bool      `json:"isCanceled,omitempty"`
	Kind       ErrorKind `json:"kind"`
	Response   *Response `json:"-"`
	Err        error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if err != nil && errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCanceled reports whether err is a cancellation rejection.
func IsCanceled(err error) bool {
	e, ok := AsError(err)
	return ok && e.IsCanceled
}

// IsSessionExpired reports whether err is a session-expiry rejection.
func IsSessionExpired(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindSessionExpired
}

func newCanceledError(cause error) *Error {
	return &Error{Code: CodeCanceled, Message: MessageCanceled, IsCanceled: true, Kind: KindCanceled, Err: cause}
}

func newNetworkError(cause error) *Error {
	return &Error{Code: CodeNetworkError, Message: MessageNetworkError, Kind: KindNetwork, Err: cause}
}

func newSessionExpiredError(resp *Response) *Error {
	return &Error{Code: http.StatusUnauthorized, Message: MessageSessionExpired, Kind: KindSessionExpired, Response: resp}
}

func newBusinessError(code int, message string, resp *Response) *Error {
	if message == "" {
		message = MessageRequestFailed
	}
	return &Error{Code: code, Message: message, Kind: KindBusiness, Response: resp}
}

func newHTTPError(resp *Response) *Error {
	message := MessageRequestFailed
	if env, err := parseEnvelope(resp.Body); err == nil && env.Message != "" {
		message = env.Message
	} else if m := envelopeMessage(resp.Body); m != "" {
		message = m
	}
	return &Error{Code: resp.StatusCode, Message: message, Kind: KindHTTP, Response: resp}
}

func newMalformedError(resp *Response, cause error) *Error {
	return &Error{Code: CodeMalformedResponse, Message: MessageMalformedResponse, Kind: KindMalformed, Response: resp, Err: cause}
}

func newInvalidRequestError(cause error) *Error {
	return &Error{Code: CodeInvalidRequest, Message: MessageInvalidRequest, Kind: KindInvalidRequest, Err: cause}
}
