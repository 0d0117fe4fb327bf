// Package config loads CLI configuration from defaults, an optional YAML
// file, GUESTALBUM_ environment variables and command line flags, in that
// order of precedence.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	goerrors "github.com/goliatone/go-errors"
)

const (
	EnvPrefix = "GUESTALBUM_"

	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
)

type Config struct {
	API    API    `koanf:"api" json:"api"`
	Store  Store  `koanf:"store" json:"store"`
	Upload Upload `koanf:"upload" json:"upload"`
	Share  Share  `koanf:"share" json:"share"`
	Log    Log    `koanf:"log" json:"log"`
}

type API struct {
	BaseURL   string        `koanf:"base_url" json:"base_url"`
	Timeout   time.Duration `koanf:"timeout" json:"timeout"`
	UserAgent string        `koanf:"user_agent" json:"user_agent"`
}

type Store struct {
	Driver    string `koanf:"driver" json:"driver"`
	Path      string `koanf:"path" json:"path"`
	RedisAddr string `koanf:"redis_addr" json:"redis_addr,omitempty"`
	Key       string `koanf:"key" json:"key"`
}

type Upload struct {
	Concurrency int `koanf:"concurrency" json:"concurrency"`
}

type Share struct {
	Origin string `koanf:"origin" json:"origin"`
}

type Log struct {
	Level      string `koanf:"level" json:"level"`
	File       string `koanf:"file" json:"file,omitempty"`
	JSON       bool   `koanf:"json" json:"json"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups"`
}

// Defaults returns the built in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"api.base_url":       "http://localhost:8000/api/v1/",
		"api.timeout":        "10s",
		"api.user_agent":     "guestalbum-cli",
		"store.driver":       DriverFile,
		"store.path":         defaultStorePath(),
		"store.redis_addr":   "localhost:6379",
		"store.key":          "token",
		"upload.concurrency": 4,
		"share.origin":       "http://localhost:3000",
		"log.level":          "info",
		"log.json":           false,
		"log.max_size_mb":    10,
		"log.max_backups":    3,
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".guestalbum", "credentials.json")
	}
	return filepath.Join(home, ".guestalbum", "credentials.json")
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"api":         "api.base_url",
	"timeout":     "api.timeout",
	"store":       "store.driver",
	"store-path":  "store.path",
	"redis":       "store.redis_addr",
	"concurrency": "upload.concurrency",
	"origin":      "share.origin",
	"log-level":   "log.level",
	"log-file":    "log.file",
	"log-json":    "log.json",
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("api", "", "API base URL")
	fs.Duration("timeout", 0, "API request timeout")
	fs.String("store", "", "credential store: memory, file, sqlite, bolt or redis")
	fs.String("store-path", "", "credential store file path")
	fs.String("redis", "", "redis address for the redis store")
	fs.Int("concurrency", 0, "parallel uploads")
	fs.String("origin", "", "origin used to build share links")
	fs.String("log-level", "", "log level")
	fs.String("log-file", "", "write logs to this file with rotation")
	fs.Bool("log-json", false, "log as JSON")
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// File is a YAML file. A missing file is an error only when Required.
	File     string
	Required bool
	// Flags is a parsed flag set built with BindFlags. Only flags the user
	// set override other sources.
	Flags *pflag.FlagSet
	// Environ replaces os.Environ, useful for tests.
	Environ []string
}

// Load builds a Config from all sources and validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, loadError("defaults", err)
	}

	path := opts.File
	if path == "" && opts.Flags != nil {
		if v, err := opts.Flags.GetString("config"); err == nil {
			path = v
			opts.Required = opts.Required || v != ""
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, loadError("file", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) || opts.Required {
			return nil, loadError("file", err)
		}
	}

	if err := loadEnv(k, opts.Environ); err != nil {
		return nil, loadError("env", err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, loadError("flags", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, loadError("decode", err)
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
			WithTextCode("INVALID_CONFIG")
	}
	return cfg, nil
}

func loadEnv(k *koanf.Koanf, environ []string) error {
	// GUESTALBUM_API_BASE_URL -> api.base_url
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		section, key, ok := strings.Cut(s, "_")
		if !ok {
			return ""
		}
		return section + "." + key
	}

	if environ == nil {
		return k.Load(env.Provider(EnvPrefix, ".", transform), nil)
	}

	values := map[string]any{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if key := transform(name); key != "" {
			values[key] = value
		}
	}
	return k.Load(confmap.Provider(values, "."), nil)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func loadError(source string, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, "loading configuration from "+source).
		WithTextCode("CONFIG_LOAD_FAILED").
		WithMetadata(map[string]any{"source": source})
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.API),
		validation.Field(&c.Store),
		validation.Field(&c.Upload),
		validation.Field(&c.Log),
		validation.Field(&c.Share),
	)
}

// Validate will run validation rules
func (a API) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BaseURL, validation.Required, is.RequestURL),
		validation.Field(&a.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// Validate will run validation rules
func (s Store) Validate() error {
	pathRequired := s.Driver == DriverFile || s.Driver == DriverSQLite || s.Driver == DriverBolt
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverMemory, DriverFile, DriverSQLite, DriverBolt, DriverRedis)),
		validation.Field(&s.Path, validation.By(requiredIf(pathRequired))),
		validation.Field(&s.RedisAddr, validation.By(requiredIf(s.Driver == DriverRedis))),
		validation.Field(&s.Key, validation.Required),
	)
}

func requiredIf(cond bool) validation.RuleFunc {
	return func(value any) error {
		if !cond {
			return nil
		}
		return validation.Validate(value, validation.Required)
	}
}

// Validate will run validation rules
func (u Upload) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Concurrency, validation.Required, validation.Min(1), validation.Max(32)),
	)
}

// Validate will run validation rules
func (s Share) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Origin, validation.Required, is.RequestURL),
	)
}

// Validate will run validation rules
func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("trace", "debug", "info", "warn", "warning", "error", "fatal", "panic")),
		validation.Field(&l.MaxSizeMB, validation.Min(0)),
		validation.Field(&l.MaxBackups, validation.Min(0)),
	)
}
