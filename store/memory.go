// Package store holds CredentialStore implementations. The in-memory store
// lives here; persistent ones live in the sub packages.
package store

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// ErrEmptyKey is returned for blank keys.
var ErrEmptyKey = goerrors.New("credential key is required", goerrors.CategoryBadInput).
	WithTextCode("EMPTY_KEY").
	WithCode(goerrors.CodeBadRequest)

// CheckKey trims key and returns ErrEmptyKey when nothing is left.
func CheckKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey.Clone()
	}
	return key, nil
}

// Wrap tags a backend failure with the operation and key it happened on.
func Wrap(err error, backend, op, key string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, backend+" "+op+" failed").
		WithTextCode("CREDENTIAL_STORE_FAILED").
		WithMetadata(map[string]any{"backend": backend, "key": key})
}

// Memory is a process local store. Values do not survive a restart.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	key, err := CheckKey(key)
	if err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	key, err := CheckKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	key, err := CheckKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}
