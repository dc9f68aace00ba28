package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const fileStoreLogPrefix = "auth:file_store"

type fileEntry struct {
	Token    string          `json:"token,omitempty"`
	UserInfo json.RawMessage `json:"userInfo,omitempty"`
}

// FileStore keeps credentials in a JSON file shared by all profiles, so a
// session survives process restarts. Writes replace the file atomically.
type FileStore struct {
	mu      sync.Mutex
	path    string
	profile string
}

// NewFileStore creates a FileStore for profile backed by path.
func NewFileStore(path, profile string) *FileStore {
	return &FileStore{path: path, profile: profile}
}

// DefaultCredentialFile returns the per-user credential file location.
func DefaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "apiclient", "credentials.json")
}

func (f *FileStore) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return "", err
	}
	return entries[f.profile].Token, nil
}

func (f *FileStore) SetToken(_ context.Context, token string) error {
	return f.update(func(e *fileEntry) { e.Token = token })
}

func (f *FileStore) UserInfo(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return nil, err
	}
	return entries[f.profile].UserInfo, nil
}

func (f *FileStore) SetUserInfo(_ context.Context, info json.RawMessage) error {
	return f.update(func(e *fileEntry) { e.UserInfo = cloneRaw(info) })
}

// Clear removes the profile's entry, leaving other profiles untouched.
func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[f.profile]; !ok {
		return nil
	}
	delete(entries, f.profile)
	return f.save(entries)
}

func (f *FileStore) update(mutate func(*fileEntry)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	entry := entries[f.profile]
	mutate(&entry)
	entries[f.profile] = entry
	return f.save(entries)
}

func (f *FileStore) load() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", fileStoreLogPrefix, f.path, err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s - corrupt credential file %s: %w", fileStoreLogPrefix, f.path, err)
	}
	return entries, nil
}

func (f *FileStore) save(entries map[string]fileEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%s - failed to encode credentials: %w", fileStoreLogPrefix, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%s - failed to create %s: %w", fileStoreLogPrefix, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("%s - failed to create temp file: %w", fileStoreLogPrefix, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s - failed to write credentials: %w", fileStoreLogPrefix, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%s - failed to set permissions: %w", fileStoreLogPrefix, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s - failed to close temp file: %w", fileStoreLogPrefix, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%s - failed to replace %s: %w", fileStoreLogPrefix, f.path, err)
	}
	return nil
}
