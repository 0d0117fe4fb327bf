// Package filestore keeps credentials in a JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/goliatone/go-guestalbum/store"
)

const backend = "filestore"

// Store persists credentials as a flat JSON object. Writes go to a sibling
// temp file first and are renamed into place.
type Store struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New creates a store writing to path on the OS filesystem.
func New(path string) *Store {
	return NewWithFs(afero.NewOsFs(), path)
}

// NewWithFs creates a store on an arbitrary afero filesystem.
func NewWithFs(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	key, err := store.CheckKey(key)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, store.Wrap(err, backend, "read", key)
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return store.Wrap(err, backend, "read", key)
	}
	values[key] = value
	return store.Wrap(s.save(values), backend, "write", key)
}

func (s *Store) Clear(_ context.Context, key string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return store.Wrap(err, backend, "read", key)
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return store.Wrap(s.save(values), backend, "write", key)
}

func (s *Store) load() (map[string]string, error) {
	values := map[string]string{}

	raw, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0o600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path)
}
