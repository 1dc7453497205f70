package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coursereg/registration-system/internal/core/service"
	"github.com/coursereg/registration-system/internal/seed"
	"github.com/coursereg/registration-system/pkg/logger"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create accounts and courses from a YAML file",
	Long:  `Creates the users and courses listed in a seed file. Entries that already exist are skipped, so the command is safe to re-run.`,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed.yaml", "seed file to apply")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, _, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	f, err := seed.LoadFile(seedFile)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context(), cfg, logger.Component("storage"))
	if err != nil {
		return err
	}
	defer store.close()

	log := logger.Component("seed")
	seeder := seed.NewSeeder(
		service.NewUserService(store.users, log),
		service.NewCourseService(store.courses, store.ledger, nil, log),
		log,
	)

	res, err := seeder.Apply(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "users: %d created, %d skipped\ncourses: %d created, %d skipped\n",
		res.UsersCreated, res.UsersSkipped, res.CoursesCreated, res.CoursesSkipped)
	return nil
}
