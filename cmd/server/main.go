// Command server runs the agenda API.
//
// Configuration comes from the environment (see internal/config), after an
// optional .env file in the working directory is loaded. Flags override
// both:
//
//	server --port 8080 --store memory --log-level debug
//
// main stays small: it builds the config and the logger, hands them to
// internal/server, and blocks in Start until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sakif/agenda-api/internal/config"
	"github.com/sakif/agenda-api/internal/server"
)

type flags struct {
	envFile  string
	port     int
	store    string
	logLevel string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Agenda REST API (users, events, categories)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().IntVar(&f.port, "port", 0, "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&f.store, "store", "", `document store: "mongo" or "memory" (overrides STORE_DRIVER)`)
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", f.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Driver = f.store
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = config.ParseLevel(f.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.Session.GeneratedSecret {
		logger.Warn("SESSION_SECRET not set; using a random key, sessions will not survive a restart")
	}

	dir := filepath.Dir(cfg.Session.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create sessions directory", slog.String("dir", dir), slog.String("error", err.Error()))
		return err
	}

	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
