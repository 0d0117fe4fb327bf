// Package redisstore keeps credentials in Redis, for hosts that share a
// session across machines.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-guestalbum/store"
)

const (
	backend       = "redisstore"
	DefaultPrefix = "guestalbum:credentials:"
)

// Option customizes Store construction.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires stored values after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// Store is a CredentialStore backed by Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New wraps an existing client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, store.Wrap(err, backend, "dial", "")
	}
	return New(client, opts...), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := store.CheckKey(key)
	if err != nil {
		return "", false, err
	}

	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Wrap(err, backend, "read", key)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
	return store.Wrap(err, backend, "write", key)
}

func (s *Store) Clear(ctx context.Context, key string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}
	err = s.client.Del(ctx, s.prefix+key).Err()
	return store.Wrap(err, backend, "delete", key)
}
