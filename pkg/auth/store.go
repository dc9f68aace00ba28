// Package auth holds the client's credential stores and the login session.
package auth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/morezero/apiclient/pkg/transport"
)

// Store persists the bearer token and the user info document of one
// credential profile. Every Store is a transport.CredentialSource.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	UserInfo(ctx context.Context) (json.RawMessage, error)
	SetUserInfo(ctx context.Context, info json.RawMessage) error
	Clear(ctx context.Context) error
}

var (
	_ transport.CredentialSource = Store(nil)
	_ Store                      = (*MemoryStore)(nil)
	_ Store                      = (*FileStore)(nil)
	_ Store                      = (*PostgresStore)(nil)
)

// IsLoggedIn reports whether s holds a non-empty token.
func IsLoggedIn(ctx context.Context, s Store) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	token    string
	userInfo json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) UserInfo(context.Context) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneRaw(m.userInfo), nil
}

func (m *MemoryStore) SetUserInfo(_ context.Context, info json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userInfo = cloneRaw(info)
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.userInfo = nil
	return nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
