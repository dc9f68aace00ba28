// Package db provides the Postgres credential store: pooling, migrations
// and the credential repository.
package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// DBTX is the query surface shared by *pgxpool.Pool and test mocks.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*pgxpool.Pool)(nil)

// NewPool creates a new pgx connection pool from the given database URL.
// A CLI issues few concurrent queries, so the pool stays small.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Debug(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = 4
	config.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Debug(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// RunMigrations applies SQL migration files in order. Migrations are
// written to be idempotent, so re-running is safe.
func RunMigrations(ctx context.Context, db DBTX, migrationFiles []string) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrationFiles)))

	for i, sql := range migrationFiles {
		if _, err := db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s - migration %d failed: %w", logPrefix, i+1, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// MigrationStatus writes whether the credential schema is present.
func MigrationStatus(ctx context.Context, db DBTX, migrationFiles []string, w io.Writer) error {
	const statusLogPrefix = "db:MigrationStatus"

	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'client_credentials')`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s - failed to check schema: %w", statusLogPrefix, err)
	}

	if exists {
		fmt.Fprintf(w, "Migration status: applied (schema present, %d migration files)\n", len(migrationFiles))
	} else {
		fmt.Fprintf(w, "Migration status: not applied (run 'apiclient migrate up'). %d migration files\n", len(migrationFiles))
	}
	return nil
}

// MigrationDown drops the credential schema. Stored sessions are lost.
func MigrationDown(ctx context.Context, db DBTX, w io.Writer) error {
	if _, err := db.Exec(ctx, `DROP TABLE IF EXISTS client_credentials`); err != nil {
		return fmt.Errorf("%s - migration down failed: %w", logPrefix, err)
	}
	fmt.Fprintln(w, "Migration down: dropped client_credentials")
	return nil
}
