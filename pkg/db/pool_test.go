package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

const poolTestPrefix = "db:pool_test"

func TestNewPool_InvalidURL(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, "invalid://not-a-valid-database-url")
	if err == nil {
		if pool != nil {
			pool.Close()
		}
		t.Fatalf("%s - expected error for invalid URL", poolTestPrefix)
	}
	if pool != nil {
		t.Errorf("%s - expected nil pool on error", poolTestPrefix)
	}
}

func TestRunMigrations_InOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("%s - failed to create mock: %v", poolTestPrefix, err)
	}
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE a").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := RunMigrations(context.Background(), mock, []string{"CREATE TABLE a", "CREATE TABLE b"}); err != nil {
		t.Fatalf("%s - unexpected error: %v", poolTestPrefix, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("%s - unmet expectations: %v", poolTestPrefix, err)
	}
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("%s - failed to create mock: %v", poolTestPrefix, err)
	}
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE a").WillReturnError(errors.New("syntax error"))

	err = RunMigrations(context.Background(), mock, []string{"CREATE TABLE a", "CREATE TABLE b"})
	if err == nil || !strings.Contains(err.Error(), "migration 1 failed") {
		t.Fatalf("%s - expected migration 1 failure, got %v", poolTestPrefix, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("%s - unmet expectations: %v", poolTestPrefix, err)
	}
}

func TestMigrationStatus(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   string
	}{
		{"applied", true, "Migration status: applied"},
		{"not applied", false, "Migration status: not applied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("%s - failed to create mock: %v", poolTestPrefix, err)
			}
			defer mock.Close()
			mock.ExpectQuery("information_schema.tables").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			var out bytes.Buffer
			if err := MigrationStatus(context.Background(), mock, []string{"x"}, &out); err != nil {
				t.Fatalf("%s - unexpected error: %v", poolTestPrefix, err)
			}
			if !strings.HasPrefix(out.String(), tt.want) {
				t.Errorf("%s - output = %q, want prefix %q", poolTestPrefix, out.String(), tt.want)
			}
		})
	}
}

func TestMigrationDown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("%s - failed to create mock: %v", poolTestPrefix, err)
	}
	defer mock.Close()
	mock.ExpectExec("DROP TABLE IF EXISTS client_credentials").WillReturnResult(pgxmock.NewResult("DROP", 0))

	var out bytes.Buffer
	if err := MigrationDown(context.Background(), mock, &out); err != nil {
		t.Fatalf("%s - unexpected error: %v", poolTestPrefix, err)
	}
	if !strings.Contains(out.String(), "dropped client_credentials") {
		t.Errorf("%s - output = %q", poolTestPrefix, out.String())
	}
}

func TestClearCredentials(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("%s - failed to create mock: %v", poolTestPrefix, err)
	}
	defer mock.Close()
	mock.ExpectExec("TRUNCATE TABLE client_credentials").WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	if err := ClearCredentials(context.Background(), mock); err != nil {
		t.Fatalf("%s - unexpected error: %v", poolTestPrefix, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("%s - unmet expectations: %v", poolTestPrefix, err)
	}
}
