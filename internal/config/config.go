// Package config provides configuration management for plank.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

const (
	// ConfigFileName is the default config file name
	ConfigFileName = "config.yaml"
	// PlankDir is the plank configuration directory
	PlankDir = ".plank"
	// DefaultFeedLimit is how many activities the feed retains.
	DefaultFeedLimit = 50
)

// Config represents the plank configuration.
type Config struct {
	// Version is the config file version
	Version int `yaml:"version"`

	// Actor is the identity mutations are recorded against.
	Actor ActorConfig `yaml:"actor"`

	// Database holds connection settings for the remote store.
	Database DatabaseConfig `yaml:"database"`

	// Activity configures the audit feed.
	Activity ActivityConfig `yaml:"activity"`

	// Server configures the HTTP/WebSocket API.
	Server ServerConfig `yaml:"server"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging"`
}

// ActorConfig identifies the current actor.
type ActorConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig defines database connection settings.
type DatabaseConfig struct {
	// Driver is the database type: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite settings
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres settings
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig defines SQLite-specific settings.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string `yaml:"path"`
}

// PostgresConfig defines PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ActivityConfig configures the activity feed.
type ActivityConfig struct {
	// FeedLimit is the number of most recent activities kept in memory.
	FeedLimit int `yaml:"feed_limit"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path: filepath.Join(PlankDir, "plank.db"),
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "plank",
				User:     "plank",
				SSLMode:  "disable",
			},
		},
		Activity: ActivityConfig{
			FeedLimit: DefaultFeedLimit,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
		if c.Database.SQLite.Path == "" {
			return plankerrors.ErrConfigMissing("database.sqlite.path")
		}
	case "postgres", "postgresql", "pg":
		if c.Database.Postgres.Host == "" {
			return plankerrors.ErrConfigMissing("database.postgres.host")
		}
		if c.Database.Postgres.Database == "" {
			return plankerrors.ErrConfigMissing("database.postgres.database")
		}
	default:
		return plankerrors.ErrConfigInvalid("database.driver",
			fmt.Sprintf("must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Activity.FeedLimit <= 0 {
		return plankerrors.ErrConfigInvalid("activity.feed_limit", "must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return plankerrors.ErrConfigInvalid("server.port", fmt.Sprintf("%d is not a valid port", c.Server.Port))
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return plankerrors.ErrConfigInvalid("logging.level", err.Error())
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return plankerrors.ErrConfigInvalid("logging.format", "must be text or json")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres", "postgresql", "pg":
		p := d.Postgres
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
			Path:   "/" + p.Database,
		}
		if p.User != "" {
			if p.Password != "" {
				u.User = url.UserPassword(p.User, p.Password)
			} else {
				u.User = url.User(p.User)
			}
		}
		if p.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
		}
		return u.String()
	default:
		return d.SQLite.Path
	}
}

// Addr returns the listen address for the API server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// LoadFrom loads a single config file on top of the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes the configuration as YAML. The file is replaced through a
// rename so a crash never leaves a half-written config behind.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFileAtomic(path, data, 0644)
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place. The rename is atomic on POSIX filesystems.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	done := false
	defer func() {
		if !done {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	done = true
	return nil
}
