// Package app constructs the engine's services once and hands them to the
// HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"todo-engine/internal/category"
	"todo-engine/internal/config"
	"todo-engine/internal/exchange"
	"todo-engine/internal/preferences"
	"todo-engine/internal/search"
	"todo-engine/internal/stats"
	"todo-engine/internal/storage"
	"todo-engine/internal/todo"
)

// App holds every service of the engine.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Store       *storage.Service
	Todos       *todo.Service
	Categories  *category.Service
	Preferences *preferences.Service
	Search      *search.Service
	Stats       *stats.Service
	Exchange    *exchange.Service

	now     func() time.Time
	closers []io.Closer

	indexMu     sync.Mutex
	fingerprint uint64
}

// Option configures New.
type Option func(*options)

type options struct {
	adapter storage.Adapter
	now     func() time.Time
	newID   func() string
}

// WithAdapter uses adapter instead of the one the config selects.
func WithAdapter(adapter storage.Adapter) Option {
	return func(o *options) { o.adapter = adapter }
}

// WithClock overrides the time source of every service.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides todo id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// New opens storage and wires the services.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger, now: o.now}

	adapter := o.adapter
	if adapter == nil {
		var err error
		adapter, err = a.openAdapter(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Store = storage.NewService(adapter, logger,
		storage.WithCompressThreshold(cfg.Storage.CompressThreshold),
		storage.WithClock(o.now),
	)
	if err := a.Store.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	todoOpts := []todo.Option{todo.WithClock(o.now)}
	if o.newID != nil {
		todoOpts = append(todoOpts, todo.WithIDGenerator(o.newID))
	}
	a.Todos = todo.NewService(a.Store, logger, todoOpts...)
	a.Categories = category.NewService(a.Store, a.Todos, logger, o.now)
	a.Preferences = preferences.NewService(a.Store, logger)
	a.Search = search.NewService()
	a.Stats = stats.NewService(a.Todos, a.Store, logger, o.now)
	a.Exchange = exchange.NewService(a.Todos, logger, o.now, exchange.WithCategories(a.Categories))

	logger.Info("todo engine ready", slog.String("backend", a.Store.Backend()))
	return a, nil
}

func (a *App) openAdapter(ctx context.Context) (storage.Adapter, error) {
	sc := a.Config.Storage
	primaryQuota := int64(sc.PrimaryQuotaMB) << 20
	fallbackQuota := int64(sc.FallbackQuotaMB) << 20

	openSQLite := func() (storage.Adapter, error) {
		adapter, err := storage.NewSQLiteAdapter(sc.SQLitePath, fallbackQuota, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, adapter)
		return adapter, nil
	}

	switch sc.Backend {
	case config.BackendMemory:
		return storage.NewMemoryAdapter(primaryQuota), nil
	case config.BackendFile:
		return storage.Select(ctx, a.Logger, storage.NewFileAdapter(sc.Dir, primaryQuota), nil)
	case config.BackendSQLite:
		return openSQLite()
	}

	primary := storage.NewFileAdapter(sc.Dir, primaryQuota)
	if primary.Available(ctx) {
		return storage.Select(ctx, a.Logger, primary, nil)
	}
	fallback, err := openSQLite()
	if err != nil {
		return nil, errors.Join(storage.ErrUnavailable, err)
	}
	return storage.Select(ctx, a.Logger, primary, fallback)
}

// Now returns the current time from the app's clock.
func (a *App) Now() time.Time {
	return a.now()
}

// Close releases storage resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
