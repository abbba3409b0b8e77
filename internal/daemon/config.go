// Package daemon manages the Stride service lifecycle and configuration.
package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage and lock backend names accepted in config.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Lock      LockConfig      `toml:"lock"`
	Clock     ClockConfig     `toml:"clock"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StorageConfig selects where tasks and profiles live.
type StorageConfig struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"` // sqlite only
	PostgresURL string `toml:"postgres_url"`
}

// LockConfig selects the per-user completion lock.
type LockConfig struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTL           string `toml:"ttl"`
}

// ClockConfig sets the zone in which calendar days roll over.
type ClockConfig struct {
	Timezone string `toml:"timezone"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a single-node configuration: SQLite under the
// Stride home, in-process locking, host time zone.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Storage: StorageConfig{
			Backend: StorageSQLite,
			Dir:     strideHome(),
		},
		Lock: LockConfig{
			Backend:   LockLocal,
			RedisAddr: "localhost:6379",
			TTL:       "10s",
		},
		Clock: ClockConfig{
			Timezone: "Local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads config from ~/.stride/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(filepath.Join(strideHome(), "config.toml"))
}

// LoadConfigFrom decodes path over DefaultConfig. A missing file is not an
// error.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.stride/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(strideHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects unknown backends and malformed durations.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("config: storage.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Lock.Backend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("config: unknown lock.backend %q", c.Lock.Backend)
	}
	if c.Lock.TTL != "" {
		if _, err := time.ParseDuration(c.Lock.TTL); err != nil {
			return fmt.Errorf("config: lock.ttl: %w", err)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// strideHome returns the Stride data directory.
func strideHome() string {
	if env := os.Getenv("STRIDE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stride")
}

// StrideHome is exported for use by other packages.
func StrideHome() string {
	return strideHome()
}
