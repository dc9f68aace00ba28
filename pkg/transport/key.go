package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// RequestKey fingerprints a request for duplicate cancellation.
type RequestKey string

const (
	keyDelimiter   = "&"
	nonceDelimiter = "&#"
)

// KeyOf derives the RequestKey from method, URL, query parameters and, for
// object bodies only, the JSON body.
func KeyOf(r *Request) RequestKey {
	if r == nil {
		return ""
	}
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}

	params := ""
	if len(r.Params) > 0 {
		if b, err := json.Marshal(r.Params); err == nil {
			params = string(b)
		}
	}

	body := ""
	if isObjectBody(r.Data) {
		if b, err := json.Marshal(r.Data); err == nil {
			body = string(b)
		}
	}

	return RequestKey(strings.Join([]string{method, r.URL, params, body}, keyDelimiter))
}

// registryKey is the key a dispatch is registered under. Binary bodies carry
// a per-dispatch nonce so two uploads never supersede each other.
func registryKey(r *Request, nonce string) RequestKey {
	key := KeyOf(r)
	if nonce == "" {
		return key
	}
	return key + RequestKey(nonceDelimiter+nonce)
}

// isObjectBody reports whether v serializes as a JSON object or array.
// Raw bytes, strings and readers (file uploads, multipart forms) do not.
func isObjectBody(v any) bool {
	switch v.(type) {
	case nil, []byte, string, io.Reader:
		return false
	case json.RawMessage:
		return true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// isBinaryBody reports whether the body is present but excluded from the key.
func isBinaryBody(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return false
	}
	return !isObjectBody(v)
}
