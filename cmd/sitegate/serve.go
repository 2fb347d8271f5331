package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sitegate/internal/cleanup"
	"github.com/sitegate/internal/config"
	"github.com/sitegate/internal/github"
	apphttp "github.com/sitegate/internal/http"
	"github.com/sitegate/internal/logger"
	"github.com/sitegate/internal/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the static site behind GitHub authentication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			appLogger := logger.InitLogger(cfg.Environment, cfg.LogJSON)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, appLogger); err != nil {
				appLogger.Error("server error", "error", err)
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) error {
	appLogger.Info("configuration loaded",
		"listen_address", cfg.ServerAddress,
		"static_root", cfg.StaticRoot,
		"session_store", cfg.Session.Store,
		"organization", cfg.Auth.GitHub.Organization,
		"teams", len(cfg.Auth.GitHub.TeamIDs),
		"allowed_users", len(cfg.Auth.GitHub.AllowedUsers),
		"whitelist", len(cfg.Whitelist),
		"enforce_ssl", cfg.EnforceSSL,
	)
	if !cfg.Auth.GitHub.RequiresMembership() && len(cfg.Auth.GitHub.AllowedUsers) == 0 {
		appLogger.Warn("no organization, team or allowed users configured; every GitHub account can sign in")
	}

	store, closeStore, err := session.Open(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			appLogger.Error("failed to close session store", "error", err)
		}
	}()

	if purger, ok := store.(session.Purger); ok {
		janitor := cleanup.NewJanitor(purger, cfg.Session.CleanupSchedule, appLogger)
		if err := janitor.Start(); err != nil {
			return err
		}
		defer janitor.Stop()
	}

	provider := github.NewClient(cfg.Auth.GitHub, cfg.CallbackURL(), nil)

	server, err := apphttp.NewServer(cfg, store, provider, appLogger)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}

// loadConfig reads the dotenv file, the environment and the site config and
// validates the result
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if v := os.Getenv("ENV_FILE"); v != "" && !cmd.Flags().Changed("env-file") {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplySiteConfig(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
