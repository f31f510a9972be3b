package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"todo-engine/internal/config"
)

// Config holds logger configuration.
type Config struct {
	LogDir     string
	LogFile    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	DevMode    bool
	Level      slog.Level

	// Console receives human-readable output. Defaults to os.Stderr.
	Console io.Writer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogDir:     "./logs",
		LogFile:    "app.log",
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
		DevMode:    true,
		Level:      slog.LevelInfo,
	}
}

// FromConfig converts the [log] section of the config file.
func FromConfig(c config.Log) (Config, error) {
	level, err := config.ParseLevel(c.Level)
	if err != nil {
		return Config{}, err
	}
	return Config{
		LogDir:     c.Dir,
		LogFile:    c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		DevMode:    c.Dev,
		Level:      level,
	}, nil
}

// MultiHandler fans out log records to multiple slog handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes r to every enabled handler and joins their errors.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}

// New builds the engine logger: a rolling JSON file plus a console
// handler, tint in dev mode and slog text otherwise. An empty LogDir
// disables the file output. The returned Closer flushes the file writer.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	console := newConsoleHandler(cfg)
	if cfg.LogDir == "" {
		return slog.New(console), nopCloser{}, nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, cfg.LogFile),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: cfg.Level})

	return slog.New(&MultiHandler{handlers: []slog.Handler{fileHandler, console}}), file, nil
}

func newConsoleHandler(cfg Config) slog.Handler {
	w := cfg.Console
	if w == nil {
		w = os.Stderr
	}
	if !cfg.DevMode {
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      cfg.Level,
		TimeFormat: "15:04:05",
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
