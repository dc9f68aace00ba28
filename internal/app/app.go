// Package app wires configuration, credential storage, event publishing and
// the transport client into one ready-to-use API client.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/apiclient/internal/config"
	"github.com/morezero/apiclient/migrations"
	"github.com/morezero/apiclient/pkg/api"
	"github.com/morezero/apiclient/pkg/auth"
	"github.com/morezero/apiclient/pkg/commsutil"
	"github.com/morezero/apiclient/pkg/db"
	"github.com/morezero/apiclient/pkg/events"
	"github.com/morezero/apiclient/pkg/transport"
)

const logPrefix = "app:app"

// Opts overrides pieces of the wiring. Nil uses defaults.
type Opts struct {
	// ErrorOutput receives user-facing error messages. Defaults to os.Stderr.
	ErrorOutput io.Writer
	// Doer replaces the HTTP client (tests).
	Doer transport.HTTPDoer
	// Registerer receives the transport metrics. When nil and METRICS_FILE is
	// set, a private registry is dumped to that file on Close.
	Registerer prometheus.Registerer
}

// App is a configured API client.
type App struct {
	Config  *config.Config
	Client  *transport.Client
	API     *api.Service
	Store   auth.Store
	Session *auth.Session

	pool        *pgxpool.Pool
	nc          *comms.Conn
	metrics     prometheus.Gatherer
	metricsFile string
}

// SetupLogging installs the default slog handler for level.
func SetupLogging(level string, w io.Writer) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

// New builds an App from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts *Opts) (*App, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if err := cfg.ValidateForClient(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}

	// Step 1: credential store
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	// Step 2: event publisher
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if cfg.COMMSURL != "" {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName, nil)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		a.nc = nc
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{
			SessionExpiredSubject: cfg.SessionExpiredSubject,
			NotificationSubject:   cfg.NotificationSubject,
		})
		slog.Debug(fmt.Sprintf("%s - Publishing client events to %s", logPrefix, cfg.COMMSURL))
	}

	errOut := opts.ErrorOutput
	if errOut == nil {
		errOut = os.Stderr
	}
	notifier := events.Notifiers{
		events.NewWriterNotifier(errOut),
		events.NewErrorNotifier(publisher, cfg.Profile),
	}

	// Step 3: transport
	clientOpts := []transport.Option{transport.WithRequestID(cfg.RequestIDHeader)}
	if opts.Doer != nil {
		clientOpts = append(clientOpts, transport.WithDoer(opts.Doer))
	}
	if cfg.CircuitBreaker {
		clientOpts = append(clientOpts, transport.WithCircuitBreaker(transport.BreakerSettings{
			Name:      cfg.COMMSName,
			Threshold: cfg.CircuitThreshold,
		}))
	}
	client, err := transport.New(transport.Params{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout(),
		Credentials: store,
		Navigator:   events.NewLoginRedirector(publisher, cfg.LoginRoute, cfg.Profile),
		Notifier:    notifier,
	}, clientOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	reg := opts.Registerer
	if reg == nil && cfg.MetricsFile != "" {
		r := prometheus.NewRegistry()
		reg, a.metrics, a.metricsFile = r, r, cfg.MetricsFile
	}
	if reg != nil {
		if err := transport.RegisterMetrics(reg); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Client = client
	a.API = api.New(client)
	a.Session = auth.NewSession(store, a.API.User)

	slog.Debug(fmt.Sprintf("%s - Client ready for %s (profile %s, store %s)", logPrefix, cfg.BaseURL, cfg.Profile, cfg.CredentialBackend))
	return a, nil
}

func (a *App) openStore(ctx context.Context) (auth.Store, error) {
	cfg := a.Config
	switch cfg.CredentialBackend {
	case config.BackendMemory:
		return auth.NewMemoryStore(), nil
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		a.pool = pool
		if cfg.RunMigrations {
			files, err := LoadMigrations(cfg.MigrationPath)
			if err != nil {
				return nil, err
			}
			if err := db.RunMigrations(ctx, pool, files); err != nil {
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		return auth.NewPostgresStore(db.NewRepository(pool), cfg.Profile), nil
	default:
		path := cfg.CredentialFile
		if path == "" {
			path = auth.DefaultCredentialFile()
		}
		return auth.NewFileStore(path, cfg.Profile), nil
	}
}

// LoadMigrations reads migrations from dir, or the embedded set when dir
// does not exist.
func LoadMigrations(dir string) ([]string, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return db.LoadMigrationFiles(dir)
		}
	}
	slog.Debug(fmt.Sprintf("%s - Using embedded migrations", logPrefix))
	return db.LoadMigrationFS(migrations.FS, ".")
}

// Close cancels in-flight requests, writes the metrics file if configured
// and releases connections.
func (a *App) Close() {
	if a.Client != nil {
		a.Client.CancelAllRequests()
	}
	if a.metrics != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.metrics); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to write metrics to %s: %v", logPrefix, a.metricsFile, err))
		}
		a.metrics = nil
	}
	commsutil.Close(a.nc)
	a.nc = nil
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
