package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for stored credentials.
type Repository struct {
	db DBTX
}

// NewRepository creates a new Repository over a pool or transaction.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// GetCredential returns the credential for profile, or nil if none is stored.
func (r *Repository) GetCredential(ctx context.Context, profile string) (*Credential, error) {
	slog.Debug(fmt.Sprintf("%s - GetCredential profile=%s", repoLogPrefix, profile))

	var c Credential
	var userInfo []byte
	err := r.db.QueryRow(ctx,
		`SELECT profile, token, user_info, modified
		 FROM client_credentials
		 WHERE profile = $1`, profile).Scan(&c.Profile, &c.Token, &userInfo, &c.Modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - GetCredential failed: %w", repoLogPrefix, err)
	}
	if len(userInfo) > 0 {
		c.UserInfo = json.RawMessage(userInfo)
	}
	return &c, nil
}

// SaveToken stores the token for profile, keeping any stored user info.
func (r *Repository) SaveToken(ctx context.Context, profile, token string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO client_credentials (profile, token, modified)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (profile) DO UPDATE SET
		   token = EXCLUDED.token,
		   modified = EXCLUDED.modified`,
		profile, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s - SaveToken failed: %w", repoLogPrefix, err)
	}
	return nil
}

// SaveUserInfo stores the user info document for profile, keeping the token.
func (r *Repository) SaveUserInfo(ctx context.Context, profile string, userInfo json.RawMessage) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO client_credentials (profile, token, user_info, modified)
		 VALUES ($1, '', $2, $3)
		 ON CONFLICT (profile) DO UPDATE SET
		   user_info = EXCLUDED.user_info,
		   modified = EXCLUDED.modified`,
		profile, []byte(userInfo), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s - SaveUserInfo failed: %w", repoLogPrefix, err)
	}
	return nil
}

// DeleteCredential removes the stored credential for profile. Deleting a
// missing profile is not an error.
func (r *Repository) DeleteCredential(ctx context.Context, profile string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM client_credentials WHERE profile = $1`, profile)
	if err != nil {
		return fmt.Errorf("%s - DeleteCredential failed: %w", repoLogPrefix, err)
	}
	slog.Debug(fmt.Sprintf("%s - DeleteCredential profile=%s rows=%d", repoLogPrefix, profile, tag.RowsAffected()))
	return nil
}
