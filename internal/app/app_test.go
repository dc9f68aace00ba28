package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/apiclient/internal/config"
	"github.com/morezero/apiclient/pkg/auth"
	"github.com/morezero/apiclient/pkg/commsutil"
	"github.com/morezero/apiclient/pkg/events"
	"github.com/morezero/apiclient/pkg/transport"
)

const appTestPrefix = "app:app_test"

// syncBuffer guards a bytes.Buffer written from request goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BaseURL:           baseURL,
		TimeoutMs:         "2000",
		CredentialBackend: config.BackendMemory,
		Profile:           "default",
		COMMSName:         "apiclient-test",
		LoginRoute:        "/Login",
		RequestIDHeader:   "X-Request-Id",
		CircuitThreshold:  5,
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"message":"ok","data":{"token":"tok-1","userInfo":{"username":"ada"}}}`)
	})
	mux.HandleFunc("GET /api/users/info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			fmt.Fprint(w, `{"code":401,"message":"expired","data":null}`)
			return
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("%s - missing request id header", appTestPrefix)
		}
		fmt.Fprint(w, `{"code":200,"message":"ok","data":{"id":1,"username":"ada"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_LoginThenAuthenticatedRequest(t *testing.T) {
	srv := newAPIServer(t)
	errOut := &syncBuffer{}
	a, err := New(context.Background(), testConfig(srv.URL), &Opts{ErrorOutput: errOut, Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("%s - New: %v", appTestPrefix, err)
	}
	defer a.Close()

	ctx := context.Background()
	if _, err := a.Session.Login(ctx, "ada", "pw"); err != nil {
		t.Fatalf("%s - Login: %v", appTestPrefix, err)
	}
	info, err := a.API.User.GetUserInfo(ctx)
	if err != nil {
		t.Fatalf("%s - GetUserInfo: %v", appTestPrefix, err)
	}
	if info.Username != "ada" {
		t.Errorf("%s - username = %q, want ada", appTestPrefix, info.Username)
	}
	if errOut.String() != "" {
		t.Errorf("%s - unexpected error output %q", appTestPrefix, errOut.String())
	}
}

func TestNew_SessionExpiryClearsStoreAndNotifies(t *testing.T) {
	srv := newAPIServer(t)
	errOut := &syncBuffer{}
	a, err := New(context.Background(), testConfig(srv.URL), &Opts{ErrorOutput: errOut})
	if err != nil {
		t.Fatalf("%s - New: %v", appTestPrefix, err)
	}
	defer a.Close()

	ctx := context.Background()
	_ = a.Store.SetToken(ctx, "stale")

	_, err = a.API.User.GetUserInfo(ctx)
	if !transport.IsSessionExpired(err) {
		t.Fatalf("%s - err = %v, want session expired", appTestPrefix, err)
	}
	if auth.IsLoggedIn(ctx, a.Store) {
		t.Errorf("%s - store should be cleared after session expiry", appTestPrefix)
	}
	if !strings.Contains(errOut.String(), "session expired") {
		t.Errorf("%s - error output = %q, want session expired message", appTestPrefix, errOut.String())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig("not-a-url")
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Errorf("%s - expected error for invalid base URL", appTestPrefix)
	}
}

func TestNew_FileBackend(t *testing.T) {
	srv := newAPIServer(t)
	cfg := testConfig(srv.URL)
	cfg.CredentialBackend = config.BackendFile
	cfg.CredentialFile = filepath.Join(t.TempDir(), "credentials.json")

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("%s - New: %v", appTestPrefix, err)
	}
	defer a.Close()

	if _, err := a.Session.Login(context.Background(), "ada", "pw"); err != nil {
		t.Fatalf("%s - Login: %v", appTestPrefix, err)
	}
	if _, err := os.Stat(cfg.CredentialFile); err != nil {
		t.Errorf("%s - credential file not written: %v", appTestPrefix, err)
	}
}

func TestNew_PublishesSessionExpiredToComms(t *testing.T) {
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: 14260, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", appTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", appTestPrefix)
	}
	defer func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}()

	sub, err := comms.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("%s - connect: %v", appTestPrefix, err)
	}
	defer sub.Close()
	ch := make(chan *comms.Msg, 4)
	s, err := sub.ChanSubscribe(commsutil.SubjectSessionExpired, ch)
	if err != nil {
		t.Fatalf("%s - subscribe: %v", appTestPrefix, err)
	}
	defer s.Unsubscribe()
	if err := sub.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", appTestPrefix, err)
	}

	srv := newAPIServer(t)
	cfg := testConfig(srv.URL)
	cfg.COMMSURL = ns.ClientURL()
	a, err := New(context.Background(), cfg, &Opts{ErrorOutput: &syncBuffer{}})
	if err != nil {
		t.Fatalf("%s - New: %v", appTestPrefix, err)
	}
	defer a.Close()

	if _, err := a.API.User.GetUserInfo(context.Background()); !transport.IsSessionExpired(err) {
		t.Fatalf("%s - err = %v, want session expired", appTestPrefix, err)
	}

	select {
	case msg := <-ch:
		var ev events.SessionExpiredEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatalf("%s - decode: %v", appTestPrefix, err)
		}
		if ev.LoginRoute != "/Login" || ev.Profile != "default" {
			t.Errorf("%s - event = %+v", appTestPrefix, ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - no session expired event received", appTestPrefix)
	}
}

func TestLoadMigrations(t *testing.T) {
	embedded, err := LoadMigrations(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("%s - embedded: %v", appTestPrefix, err)
	}
	if len(embedded) == 0 || !strings.Contains(embedded[0], "client_credentials") {
		t.Errorf("%s - embedded migrations = %d files", appTestPrefix, len(embedded))
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_x.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatalf("%s - write: %v", appTestPrefix, err)
	}
	onDisk, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("%s - on disk: %v", appTestPrefix, err)
	}
	if len(onDisk) != 1 || onDisk[0] != "SELECT 1;" {
		t.Errorf("%s - on-disk migrations = %v", appTestPrefix, onDisk)
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	SetupLogging("warn", &buf)
	defer SetupLogging("info", os.Stderr)

	a, err := New(context.Background(), testConfig("http://api.test"), nil)
	if err != nil {
		t.Fatalf("%s - New: %v", appTestPrefix, err)
	}
	a.Close()
	if buf.Len() != 0 {
		t.Errorf("%s - debug output leaked at warn level: %q", appTestPrefix, buf.String())
	}
}

func TestNew_WritesMetricsFileOnClose(t *testing.T) {
	srv := newAPIServer(t)
	cfg := testConfig(srv.URL)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "apiclient.prom")

	a, err := New(context.Background(), cfg, &Opts{ErrorOutput: &syncBuffer{}})
	if err != nil {
		t.Fatalf("%s - New: %v", appTestPrefix, err)
	}
	if _, err := a.Session.Login(context.Background(), "ada", "pw"); err != nil {
		t.Fatalf("%s - Login: %v", appTestPrefix, err)
	}
	a.Close()

	data, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("%s - metrics file not written: %v", appTestPrefix, err)
	}
	if !strings.Contains(string(data), "apiclient_requests_total") {
		t.Errorf("%s - metrics file missing request counter:\n%s", appTestPrefix, data)
	}
}

func TestNew_SharedRegistererTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	for i := 0; i < 2; i++ {
		a, err := New(context.Background(), testConfig("http://api.test"), &Opts{Registerer: reg})
		if err != nil {
			t.Fatalf("%s - New #%d: %v", appTestPrefix, i+1, err)
		}
		a.Close()
	}
}
