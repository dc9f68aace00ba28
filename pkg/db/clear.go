package db

import (
	"context"
	"fmt"
	"log/slog"
)

const clearLogPrefix = "db:clear"

// ClearCredentials removes every stored credential. Schema is preserved.
func ClearCredentials(ctx context.Context, db DBTX) error {
	slog.Info(fmt.Sprintf("%s - Clearing stored credentials", clearLogPrefix))

	if _, err := db.Exec(ctx, `TRUNCATE TABLE client_credentials`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Credentials cleared", clearLogPrefix))
	return nil
}
