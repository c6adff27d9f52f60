/*
Package config holds process configuration for the xpledger binary.

PURPOSE:
  Everything that varies per deployment (where rules live, which ledger
  backend to open, HTTP port, logging) comes from XP_* environment
  variables. Command-line flags override individual values after parsing.

ENVIRONMENT:
  XP_RULES_DIR     root holding metrics/ and labs/ rule documents (default ".")
  XP_STORE         file | sqlite | postgres | memory (default "file")
  XP_USERS_DIR     ledger directory for the file store
                   (default <XP_RULES_DIR>/metrics/users)
  XP_SQLITE_PATH   SQLite database path (default "xp-ledger.db")
  XP_POSTGRES_URL  PostgreSQL connection string, required for postgres
  XP_REDIS_ADDR    when set, per-user locks are taken in Redis
  XP_LOCK_TTL      Redis lock lease (default 30s)
  XP_PORT          HTTP port for serve (default 8080)
  XP_LOG_LEVEL     debug | info | warn | error (default info)
  XP_LOG_FORMAT    text | json (default text)
  XP_WORKERS       batch concurrency (default 4)

  XP_MAINTENANCE_INTERVAL  serve runs decay + labs on this interval
                           (default 0, disabled)
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	RulesDir    string        `env:"XP_RULES_DIR" envDefault:"."`
	Store       string        `env:"XP_STORE" envDefault:"file"`
	UsersDir    string        `env:"XP_USERS_DIR"`
	SQLitePath  string        `env:"XP_SQLITE_PATH" envDefault:"xp-ledger.db"`
	PostgresURL string        `env:"XP_POSTGRES_URL"`
	RedisAddr   string        `env:"XP_REDIS_ADDR"`
	LockTTL     time.Duration `env:"XP_LOCK_TTL" envDefault:"30s"`
	Port        int           `env:"XP_PORT" envDefault:"8080"`
	LogLevel    string        `env:"XP_LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"XP_LOG_FORMAT" envDefault:"text"`
	Workers     int           `env:"XP_WORKERS" envDefault:"4"`

	MaintenanceInterval time.Duration `env:"XP_MAINTENANCE_INTERVAL"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses an explicit environment instead of the process one.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("XP_POSTGRES_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.MaintenanceInterval < 0 {
		errs = append(errs, fmt.Errorf("maintenance interval must not be negative, got %s", c.MaintenanceInterval))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// UsersPath is the ledger directory used by the file store.
func (c Config) UsersPath() string {
	if c.UsersDir != "" {
		return c.UsersDir
	}
	return filepath.Join(c.RulesDir, "metrics", "users")
}

// NewLogger builds the process logger.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
