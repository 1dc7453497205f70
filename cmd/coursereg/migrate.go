package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coursereg/registration-system/internal/infrastructure/db/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	Long:  `Applies the embedded PostgreSQL migrations. The SQLite schema is created when the database is opened, so this is a no-op for STORAGE_DRIVER=sqlite.`,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != "postgres" {
		log.Info().Str("storage", cfg.Storage.Driver).Msg("nothing to migrate")
		return nil
	}

	v, err := postgres.Migrate(cfg.Storage.DatabaseURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
	return nil
}
