package auth

import (
	"context"
	"encoding/json"

	"github.com/morezero/apiclient/pkg/db"
)

// PostgresStore keeps credentials in the client_credentials table, keyed
// by profile.
type PostgresStore struct {
	repo    *db.Repository
	profile string
}

func NewPostgresStore(repo *db.Repository, profile string) *PostgresStore {
	return &PostgresStore{repo: repo, profile: profile}
}

func (p *PostgresStore) Token(ctx context.Context) (string, error) {
	c, err := p.repo.GetCredential(ctx, p.profile)
	if err != nil || c == nil {
		return "", err
	}
	return c.Token, nil
}

func (p *PostgresStore) SetToken(ctx context.Context, token string) error {
	return p.repo.SaveToken(ctx, p.profile, token)
}

func (p *PostgresStore) UserInfo(ctx context.Context) (json.RawMessage, error) {
	c, err := p.repo.GetCredential(ctx, p.profile)
	if err != nil || c == nil {
		return nil, err
	}
	return c.UserInfo, nil
}

func (p *PostgresStore) SetUserInfo(ctx context.Context, info json.RawMessage) error {
	return p.repo.SaveUserInfo(ctx, p.profile, info)
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	return p.repo.DeleteCredential(ctx, p.profile)
}
