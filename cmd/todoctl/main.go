// Package main implements the todoctl CLI, a local front end to the todo
// engine that shares its storage with the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"todo-engine/internal/app"
	"todo-engine/internal/config"
	"todo-engine/internal/logger"
	"todo-engine/internal/todo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "todoctl",
	Short:         "Manage the local todo list",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the TOML config file (default $"+config.EnvPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
}

// openApp loads the config and opens the engine. The CLI logs to stderr
// only. The returned func releases storage and the logger.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg, err := logger.FromConfig(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	logCfg.LogDir = ""
	logCfg.Console = cmd.ErrOrStderr()
	if !verbose && logCfg.Level < slog.LevelWarn {
		logCfg.Level = slog.LevelWarn
	}
	log, logCloser, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		logCloser.Close()
	}, nil
}

// resolveID expands a unique id prefix to a full todo id.
func resolveID(ctx context.Context, a *app.App, ref string) (string, error) {
	todos, err := a.Todos.GetAll(ctx, true)
	if err != nil {
		return "", err
	}
	ref = strings.ToLower(strings.TrimSpace(ref))
	var found []string
	for _, t := range todos {
		id := strings.ToLower(t.ID)
		if id == ref {
			return t.ID, nil
		}
		if ref != "" && strings.HasPrefix(id, ref) {
			found = append(found, t.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", todo.ErrNotFound, ref)
	case 1:
		return found[0], nil
	}
	return "", fmt.Errorf("id prefix %q is ambiguous (%d matches)", ref, len(found))
}

func resolveIDs(ctx context.Context, a *app.App, refs []string) ([]string, error) {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		id, err := resolveID(ctx, a, ref)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
