package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Do dispatches req and decodes the envelope data into T. A payload that
// does not fit T rejects with a malformed-response error; it is not shown
// through the Notifier.
func Do[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var out T
	data, err := c.Request(ctx, req)
	if err != nil {
		return out, err
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, newMalformedError(nil, fmt.Errorf("%s - failed to decode data into %T: %w", logPrefix, out, err))
	}
	return out, nil
}

func Get[T any](ctx context.Context, c *Client, url string, opts ...RequestOption) (T, error) {
	return Do[T](ctx, c, NewRequest(http.MethodGet, url, nil, opts...))
}

func Post[T any](ctx context.Context, c *Client, url string, data any, opts ...RequestOption) (T, error) {
	return Do[T](ctx, c, NewRequest(http.MethodPost, url, data, opts...))
}

func Put[T any](ctx context.Context, c *Client, url string, data any, opts ...RequestOption) (T, error) {
	return Do[T](ctx, c, NewRequest(http.MethodPut, url, data, opts...))
}

func Patch[T any](ctx context.Context, c *Client, url string, data any, opts ...RequestOption) (T, error) {
	return Do[T](ctx, c, NewRequest(http.MethodPatch, url, data, opts...))
}

func Delete[T any](ctx context.Context, c *Client, url string, opts ...RequestOption) (T, error) {
	return Do[T](ctx, c, NewRequest(http.MethodDelete, url, nil, opts...))
}
