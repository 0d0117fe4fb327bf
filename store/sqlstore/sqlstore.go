// Package sqlstore keeps credentials in a SQLite table managed by goose
// migrations and queried through bun.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-guestalbum/store"
)

const backend = "sqlstore"

//go:embed migrations/*.sql
var migrations embed.FS

type credential struct {
	bun.BaseModel `bun:"table:credentials"`

	Name      string    `bun:"name,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store is a CredentialStore backed by SQL.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Open opens the SQLite database at dsn and applies pending migrations.
// Use "file::memory:?cache=shared" for an in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, store.Wrap(err, backend, "open", "")
	}
	sqldb.SetMaxOpenConns(1)

	if err := Migrate(ctx, sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}

	return New(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

// Migrate applies the embedded migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return store.Wrap(err, backend, "migrate", "")
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return store.Wrap(err, backend, "migrate", "")
	}
	if _, err := provider.Up(ctx); err != nil {
		return store.Wrap(err, backend, "migrate", "")
	}
	return nil
}

// New wraps an already migrated bun database.
func New(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the underlying bun database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := store.CheckKey(key)
	if err != nil {
		return "", false, err
	}

	var row credential
	err = s.db.NewSelect().
		Model(&row).
		Where("name = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Wrap(err, backend, "read", key)
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}

	row := &credential{Name: key, Value: value, UpdatedAt: s.now().UTC()}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return store.Wrap(err, backend, "write", key)
}

func (s *Store) Clear(ctx context.Context, key string) error {
	key, err := store.CheckKey(key)
	if err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Model((*credential)(nil)).
		Where("name = ?", key).
		Exec(ctx)
	return store.Wrap(err, backend, "delete", key)
}
