package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todo-engine/internal/config"
)

func TestConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Config{Level: slog.LevelWarn, Console: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer closer.Close()

	log.Info("hidden")
	log.Warn("shown", slog.String("key", "value"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level:\n%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "key=value") {
		t.Errorf("console output = %q", out)
	}
}

func TestFileAndConsole(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogDir = dir
	cfg.DevMode = false
	cfg.Console = &buf

	log, closer, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.With(slog.String("component", "test")).Info("stored", slog.Int("count", 2))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, cfg.LogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("log file is not one JSON record: %v\n%s", err, data)
	}
	if rec["msg"] != "stored" || rec["component"] != "test" || rec["count"] != float64(2) {
		t.Errorf("file record = %v", rec)
	}
	if !strings.Contains(buf.String(), "msg=stored") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestDevModeUsesTint(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Config{DevMode: true, Level: slog.LevelInfo, Console: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.Info("pretty")

	out := buf.String()
	if !strings.Contains(out, "pretty") || strings.Contains(out, "msg=") {
		t.Errorf("dev console output = %q", out)
	}
}

func TestFromConfig(t *testing.T) {
	c := config.Default().Log
	c.Level = "error"
	got, err := FromConfig(c)
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}
	if got.Level != slog.LevelError || got.LogDir != c.Dir || got.DevMode != c.Dev {
		t.Errorf("FromConfig() = %+v", got)
	}

	c.Level = "loud"
	if _, err := FromConfig(c); err == nil {
		t.Error("FromConfig() accepted an invalid level")
	}
}

func TestLogDirIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "logs")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.LogDir = blocker
	if _, _, err := New(cfg); err == nil {
		t.Error("New() succeeded with a file as log dir")
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(t.Context(), slog.LevelError) {
		t.Error("Discard() logger is enabled")
	}
}
