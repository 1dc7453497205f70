package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coursereg/registration-system/internal/api/handler"
	"github.com/coursereg/registration-system/internal/core/ports"
	"github.com/coursereg/registration-system/internal/infrastructure/config"
	"github.com/coursereg/registration-system/internal/infrastructure/db/postgres"
	"github.com/coursereg/registration-system/internal/infrastructure/db/sqlite"
)

type ledgerStore interface {
	ports.RegistrationRepository
	ports.StatsRepository
}

// storage is the relational backend selected by STORAGE_DRIVER.
type storage struct {
	users   ports.UserRepository
	courses ports.CourseRepository
	ledger  ledgerStore
	pinger  handler.Pinger
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return &storage{
			users:   sqlite.NewUserRepository(db),
			courses: sqlite.NewCourseRepository(db),
			ledger:  sqlite.NewRegistrationRepository(db),
			pinger:  db,
			close:   func() { _ = db.Close() },
		}, nil

	case "postgres":
		if cfg.Storage.AutoMigrate {
			v, err := postgres.Migrate(cfg.Storage.DatabaseURL)
			if err != nil {
				return nil, err
			}
			log.Info().Uint("schema_version", v).Msg("migrations applied")
		}
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Storage.DatabaseURL,
			MaxConns:        cfg.Storage.MaxConns,
			MinConns:        cfg.Storage.MinConns,
			ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Storage.ConnMaxIdleTime,
		}, log)
		if err != nil {
			return nil, err
		}
		return &storage{
			users:   postgres.NewUserRepository(db),
			courses: postgres.NewCourseRepository(db),
			ledger:  postgres.NewRegistrationRepository(db),
			pinger:  db,
			close:   db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}
