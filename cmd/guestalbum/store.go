package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	guestalbum "github.com/goliatone/go-guestalbum"
	"github.com/goliatone/go-guestalbum/config"
	"github.com/goliatone/go-guestalbum/store"
	"github.com/goliatone/go-guestalbum/store/boltstore"
	"github.com/goliatone/go-guestalbum/store/filestore"
	"github.com/goliatone/go-guestalbum/store/redisstore"
	"github.com/goliatone/go-guestalbum/store/sqlstore"
)

// openStore builds the credential store named by cfg.Driver.
func openStore(ctx context.Context, cfg config.Store) (guestalbum.CredentialStore, io.Closer, error) {
	if cfg.Path != "" && cfg.Driver != config.DriverMemory && cfg.Driver != config.DriverRedis {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, nil, err
		}
	}

	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemory(), nopCloser{}, nil
	case config.DriverSQLite:
		s, err := sqlstore.Open(ctx, "file:"+cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverBolt:
		s, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverRedis:
		s, err := redisstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return filestore.New(cfg.Path), nopCloser{}, nil
	}
}
