package credential

import (
	"errors"
	"os"
	"sync"
)

// TokenSource resolves the GitHub token: the GITHUB_TOKEN environment
// variable first, then the store.
type TokenSource struct {
	store Store
	env   func(string) string
}

// NewTokenSource creates a TokenSource over s.
func NewTokenSource(s Store) *TokenSource {
	return &TokenSource{store: s, env: os.Getenv}
}

// Token returns the current token, or "" when none is configured. Errors
// other than a missing entry are returned.
func (t *TokenSource) Token() (string, error) {
	if v := t.env(EnvToken); v != "" {
		return v, nil
	}
	if t.store == nil {
		return "", nil
	}
	v, err := t.store.Get(TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Save persists a token received from sign-in.
func (t *TokenSource) Save(token string) error {
	return t.store.Set(TokenKey, token)
}

// Forget removes the stored token.
func (t *TokenSource) Forget() error {
	return t.store.Delete(TokenKey)
}

// Memory is an in-process Store, used in tests and when no keyring
// backend can be opened.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
