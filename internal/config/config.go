// Package config provides client configuration loaded from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// DefaultTimeoutMs applies when API_TIMEOUT is missing or not a positive integer.
const DefaultTimeoutMs = 15000

// Credential backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds apiclient configuration.
type Config struct {
	// API
	BaseURL string `envconfig:"API_BASE_URL" default:"http://localhost:9090"`
	// TimeoutMs is kept as a string so a malformed value falls back instead
	// of failing the whole load.
	TimeoutMs string `envconfig:"API_TIMEOUT"`

	// Credentials
	CredentialBackend string `envconfig:"CREDENTIAL_BACKEND" default:"file"`
	CredentialFile    string `envconfig:"CREDENTIAL_FILE"`
	Profile           string `envconfig:"CREDENTIAL_PROFILE" default:"default"`

	// Database (postgres backend and migrate commands)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// COMMS: session and notification events go to NATS at COMMSURL; empty disables.
	COMMSURL              string `envconfig:"COMMS_URL"`
	COMMSName             string `envconfig:"SERVICE_NAME" default:"apiclient"`
	SessionExpiredSubject string `envconfig:"SESSION_EXPIRED_SUBJECT"`
	NotificationSubject   string `envconfig:"NOTIFICATION_SUBJECT"`
	LoginRoute            string `envconfig:"LOGIN_ROUTE" default:"/Login"`

	// Transport
	RequestIDHeader  string `envconfig:"REQUEST_ID_HEADER" default:"X-Request-Id"`
	CircuitBreaker   bool   `envconfig:"CIRCUIT_BREAKER" default:"false"`
	CircuitThreshold uint32 `envconfig:"CIRCUIT_THRESHOLD" default:"5"`

	// Metrics: transport metrics are written here in Prometheus text format
	// when the client exits (node_exporter textfile collector).
	MetricsFile string `envconfig:"METRICS_FILE"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Timeout returns API_TIMEOUT as a duration.
func (c *Config) Timeout() time.Duration {
	ms, err := strconv.Atoi(c.TimeoutMs)
	if err != nil || ms <= 0 {
		ms = DefaultTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// ValidateForClient checks required config before issuing API requests.
func (c *Config) ValidateForClient() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s - API_BASE_URL %q must be an absolute URL", logPrefix, c.BaseURL)
	}
	switch c.CredentialBackend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if err := c.ValidateForDB(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%s - unknown CREDENTIAL_BACKEND %q", logPrefix, c.CredentialBackend)
	}
	if c.Profile == "" {
		return fmt.Errorf("%s - CREDENTIAL_PROFILE must not be empty", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, ensure-db).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
