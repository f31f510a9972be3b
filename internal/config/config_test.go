package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadOverridesPresentKeys(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9000"
request-timeout = "5s"

[storage]
backend = "sqlite"
sqlite-path = "/tmp/todos.db"

[todo]
fuzzy-threshold = 0.4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.RequestTimeout.Duration != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.SQLitePath != "/tmp/todos.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Todo.FuzzyThreshold != 0.4 {
		t.Errorf("FuzzyThreshold = %v, want 0.4", cfg.Todo.FuzzyThreshold)
	}

	def := Default()
	if cfg.Server.ShutdownTimeout != def.Server.ShutdownTimeout || cfg.Storage.Dir != def.Storage.Dir || cfg.Todo.CleanupDays != def.Todo.CleanupDays {
		t.Error("keys absent from the file did not keep their defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"debug\"\n")
	t.Setenv(EnvPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "[storage]\nbogus = 1\n", "unknown keys: storage.bogus"},
		{"bad syntax", "[server\n", "parse config file"},
		{"bad duration", "[server]\nrequest-timeout = \"soon\"\n", "parse config file"},
		{"bad backend", "[storage]\nbackend = \"redis\"\n", `unknown storage backend "redis"`},
		{"bad level", "[log]\nlevel = \"loud\"\n", `invalid log level "loud"`},
		{"bad threshold", "[todo]\nfuzzy-threshold = 1.5\n", "fuzzy-threshold must be between 0 and 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if d.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 1m30s", d.Duration)
	}
	text, err := d.MarshalText()
	if err != nil || string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
}
