package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// blockingDoer parks every request until its context ends, announcing each
// arrival on arrived.
func blockingDoer(arrived chan<- *http.Request) doerFunc {
	return func(req *http.Request) (*http.Response, error) {
		arrived <- req
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) ShowError(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type memoryCredentials struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *memoryCredentials) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryCredentials) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

type countingNavigator struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNavigator) GoToLogin(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func (n *countingNavigator) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type testClient struct {
	*Client
	notifier    *recordingNotifier
	credentials *memoryCredentials
	navigator   *countingNavigator
}

func newTestClient(t *testing.T, doer HTTPDoer, opts ...Option) *testClient {
	t.Helper()
	tc := &testClient{
		notifier:    &recordingNotifier{},
		credentials: &memoryCredentials{token: "secret-token"},
		navigator:   &countingNavigator{},
	}
	client, err := New(Params{
		BaseURL:     "http://api.test",
		Timeout:     5 * time.Second,
		Credentials: tc.credentials,
		Navigator:   tc.navigator,
		Notifier:    tc.notifier,
	}, append([]Option{WithDoer(doer)}, opts...)...)
	if err != nil {
		t.Fatalf("transport:helpers_test - New failed: %v", err)
	}
	tc.Client = client
	return tc
}

type result struct {
	data []byte
	err  error
}

// goRequest dispatches req on its own goroutine.
func goRequest(c *Client, req *Request) <-chan result {
	out := make(chan result, 1)
	go func() {
		data, err := c.Request(context.Background(), req)
		out <- result{data: data, err: err}
	}()
	return out
}

func waitArrival(t *testing.T, arrived <-chan *http.Request) *http.Request {
	t.Helper()
	select {
	case req := <-arrived:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("transport:helpers_test - request never reached the transport")
		return nil
	}
}

func waitResult(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("transport:helpers_test - request never settled")
		return result{}
	}
}

func requireError(t *testing.T, err error, code int, message string) *Error {
	t.Helper()
	e, ok := AsError(err)
	if !ok {
		t.Fatalf("transport:helpers_test - expected *Error, got %T (%v)", err, err)
	}
	if e.Code != code {
		t.Errorf("transport:helpers_test - code = %d, want %d", e.Code, code)
	}
	if message != "" && e.Message != message {
		t.Errorf("transport:helpers_test - message = %q, want %q", e.Message, message)
	}
	return e
}
