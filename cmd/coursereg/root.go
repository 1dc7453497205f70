package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coursereg/registration-system/internal/infrastructure/config"
	"github.com/coursereg/registration-system/pkg/logger"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "coursereg",
	Short:        "Course registration backend",
	Long:         `Serves the course catalog and enrollment ledger over HTTP, and manages its database.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// bootstrap loads configuration from the environment and initializes the
// process logger from it.
func bootstrap(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})
	return cfg, log, nil
}
