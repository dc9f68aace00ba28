package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/apiclient/pkg/api"
	"github.com/morezero/apiclient/pkg/transport"
)

const sessionLogPrefix = "auth:session"

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest, opts ...transport.RequestOption) (*api.LoginResult, error)
}

var _ Authenticator = (*api.UserService)(nil)

// Session ties a Store to the login endpoint.
type Session struct {
	store Store
	auth  Authenticator
}

func NewSession(store Store, auth Authenticator) *Session {
	return &Session{store: store, auth: auth}
}

// Login authenticates and stores the token and user info.
func (s *Session) Login(ctx context.Context, username, password string) (*api.LoginResult, error) {
	res, err := s.auth.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - login failed for %s: %v", sessionLogPrefix, username, err))
		return nil, err
	}
	if err := s.store.SetToken(ctx, res.Token); err != nil {
		return nil, fmt.Errorf("%s - failed to store token: %w", sessionLogPrefix, err)
	}
	if err := s.store.SetUserInfo(ctx, res.UserInfo); err != nil {
		return nil, fmt.Errorf("%s - failed to store user info: %w", sessionLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - logged in as %s", sessionLogPrefix, username))
	return res, nil
}

// Logout forgets the stored credentials.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s - failed to clear credentials: %w", sessionLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - logged out", sessionLogPrefix))
	return nil
}

// IsLoggedIn reports whether a token is stored.
func (s *Session) IsLoggedIn(ctx context.Context) bool {
	return IsLoggedIn(ctx, s.store)
}
