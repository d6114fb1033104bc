// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cli implements the folio command line: the HTTP server and the
// database maintenance commands. Every command loads its configuration
// from the environment, optionally primed from a .env file.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/database"
)

const defaultEnvFile = ".env"

// app carries state shared by the subcommands once the root command has
// loaded the configuration.
type app struct {
	envFile string
	cfg     *config.Config
}

// NewRootCommand builds the folio command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Folio is a small publishing server for categorised articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Flags().Changed("env-file"), cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", defaultEnvFile, "file of KEY=value pairs loaded before reading the environment")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newCheckCommand(a),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return 1
	}
	return 0
}

// load primes the environment from the env file and reads the config. A
// missing default env file is fine; a missing explicit one is not.
func (a *app) load(explicit bool, logOut io.Writer) error {
	if err := loadEnvFile(a.envFile, explicit); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg
	slog.SetDefault(newLogger(cfg, logOut))
	return nil
}

func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// newLogger writes text logs in development and JSON everywhere else.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// openDB connects to PostgreSQL using the loaded configuration.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.Connect(ctx, a.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
