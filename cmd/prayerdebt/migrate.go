package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/prayer-debt/internal/config"
)

func migrateCmd() *cobra.Command {
	var (
		envFile string
		dsn     string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dsn == "" {
				dsn = cfg.SQLiteDSN
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
			storage, err := openSQLite(cmd.Context(), dsn, cfg, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			version, err := storage.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database file (default PRAYERDEBT_SQLITE_DSN)")

	return cmd
}
