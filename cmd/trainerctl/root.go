package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/database"
	"github.com/aitrainer/trainer-backend/internal/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "trainerctl",
	Short:         "Operator tooling for the AI trainer backend",
	Long:          "trainerctl runs database migrations, imports the question bank and manages user accounts.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		log = logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(userCmd)
}

// connect opens the PostgreSQL pool from the loaded configuration.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	return database.NewPostgresPool(ctx, cfg, log)
}
