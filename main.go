package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"todo-engine/internal/app"
	"todo-engine/internal/config"
	"todo-engine/internal/handler"
	"todo-engine/internal/logger"
	"todo-engine/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file (default $"+config.EnvPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Logger
	logCfg, err := logger.FromConfig(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, logCloser, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	// Storage and services
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: newRouter(a, log)}

	go func() {
		log.Info("server starting", slog.String("addr", cfg.Server.Addr), slog.String("docs", "/docs"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// newRouter builds the chi router with middleware, the health check and
// the huma API.
func newRouter(a *app.App, log *slog.Logger) http.Handler {
	sc := a.Config.Server

	router := chi.NewMux()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log, sc.SlowRequest.Duration))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(sc.CORSOrigins))
	if sc.RequestTimeout.Duration > 0 {
		router.Use(chimw.Timeout(sc.RequestTimeout.Duration))
	}

	// Health check (plain chi route, outside huma)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","backend":%q}`, a.Store.Backend())
	})

	// Huma API (OpenAPI 3.1)
	humaCfg := huma.DefaultConfig("Todo Engine API", "1.0.0")
	humaCfg.Info.Description = "Local todo list engine: todos, categories, search, statistics and backups."
	api := humachi.New(router, humaCfg)

	handler.Register(api, a, log)
	return router
}
