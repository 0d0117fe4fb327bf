// Package boltstore keeps credentials in a bbolt database file.
package boltstore

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-guestalbum/store"
)

const backend = "boltstore"

var bucketName = []byte("credentials")

// Store is a CredentialStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, store.Wrap(err, backend, "open", "")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, store.Wrap(err, backend, "open", "")
	}

	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	key, err := store.CheckKey(key)
	if err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, store.Wrap(err, backend, "read", key)
	}
	return value, found, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	return store.Wrap(err, backend, "write", key)
}

func (s *Store) Clear(_ context.Context, key string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	return store.Wrap(err, backend, "delete", key)
}
