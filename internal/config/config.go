// Package config loads the engine's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "TODO_CONFIG"

// Backend selects the storage adapter.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Config is the full configuration file.
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Log     Log     `toml:"log"`
	Todo    Todo    `toml:"todo"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string   `toml:"addr"`
	RequestTimeout  Duration `toml:"request-timeout"`
	ShutdownTimeout Duration `toml:"shutdown-timeout"`
	SlowRequest     Duration `toml:"slow-request"`
	CORSOrigins     []string `toml:"cors-origins"`
}

// Storage configures persistence.
type Storage struct {
	Backend           Backend `toml:"backend"`
	Dir               string  `toml:"dir"`
	SQLitePath        string  `toml:"sqlite-path"`
	PrimaryQuotaMB    int     `toml:"primary-quota-mb"`
	FallbackQuotaMB   int     `toml:"fallback-quota-mb"`
	CompressThreshold int     `toml:"compress-threshold"`
}

// Log configures the logger.
type Log struct {
	Dir        string `toml:"dir"`
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max-size-mb"`
	MaxBackups int    `toml:"max-backups"`
	MaxAgeDays int    `toml:"max-age-days"`
	Dev        bool   `toml:"dev"`
}

// Todo configures todo behavior.
type Todo struct {
	CleanupDays    int     `toml:"cleanup-days"`
	FuzzyThreshold float64 `toml:"fuzzy-threshold"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			RequestTimeout:  Duration{30 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			SlowRequest:     Duration{time.Second},
			CORSOrigins:     []string{"*"},
		},
		Storage: Storage{
			Backend:           BackendAuto,
			Dir:               "./data",
			SQLitePath:        "./data/todos.db",
			PrimaryQuotaMB:    10,
			FallbackQuotaMB:   50,
			CompressThreshold: 1024,
		},
		Log: Log{
			Dir:        "./logs",
			File:       "app.log",
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Dev:        true,
		},
		Todo: Todo{
			CleanupDays:    30,
			FuzzyThreshold: 0.6,
		},
	}
}

// Load reads path over the defaults. An empty path falls back to $TODO_CONFIG;
// a missing file yields the defaults. Only keys present in the file override.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("parse config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected silently.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendAuto, BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Todo.FuzzyThreshold < 0 || c.Todo.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy-threshold must be between 0 and 1, got %v", c.Todo.FuzzyThreshold)
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
