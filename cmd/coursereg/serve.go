package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coursereg/registration-system/internal/api"
	"github.com/coursereg/registration-system/internal/api/handler"
	"github.com/coursereg/registration-system/internal/core/service"
	"github.com/coursereg/registration-system/internal/infrastructure/cache"
	"github.com/coursereg/registration-system/internal/infrastructure/config"
	mongostore "github.com/coursereg/registration-system/internal/infrastructure/db/mongo"
	redisstore "github.com/coursereg/registration-system/internal/infrastructure/db/redis"
	"github.com/coursereg/registration-system/internal/infrastructure/queue"
	"github.com/coursereg/registration-system/internal/infrastructure/tracing"
	"github.com/coursereg/registration-system/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		return err
	}
	defer store.close()

	health := map[string]handler.Pinger{"database": store.pinger}
	catalog := cache.NewCourseListCache(cfg.Catalog.CacheTTL)

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	opts := []service.RegistrationOption{
		service.WithCatalogCache(catalog),
		service.WithTracer(provider.Tracer()),
	}

	// Audit workers outlive the HTTP server so in-flight events are drained
	// after the last request completes.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()

	if cfg.Mongo.Enabled {
		dispatcher, repo, closeAudit, err := startAudit(ctx, auditCtx, cfg, health)
		if err != nil {
			log.Warn().Err(err).Msg("audit trail unavailable, continuing without it")
		} else {
			defer closeAudit()
			defer dispatcher.Wait()
			defer stopAudit()
			opts = append(opts, service.WithAudit(dispatcher, repo))
		}
	}

	if cfg.Redis.Enabled {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("idempotency store unavailable, continuing without it")
		} else {
			defer client.Close()
			health["redis"] = redisstore.Pinger{Client: client}
			opts = append(opts, service.WithIdempotency(redisstore.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)))
		}
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	e := api.NewRouter(api.Deps{
		Auth:          service.NewAuthService(store.users, tokens, logger.Component("auth")),
		Courses:       service.NewCourseService(store.courses, store.ledger, catalog, logger.Component("catalog")),
		Registrations: service.NewRegistrationService(store.ledger, logger.Component("ledger"), opts...),
		Users:         service.NewUserService(store.users, logger.Component("users")),
		Dashboard:     service.NewDashboardService(store.ledger),
		Tokens:        tokens,
		Health:        health,
		Tracer:        provider.Tracer(),
		Log:           logger.Component("http"),
		CookieTTL:     cfg.TokenTTL,
		SecureCookie:  cfg.IsProduction(),
		Metrics:       true,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage.Driver).Msg("server starting")
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

// startAudit connects the audit store and starts the dispatcher workers on
// workerCtx. The returned func disconnects the client.
func startAudit(
	ctx, workerCtx context.Context,
	cfg *config.Config,
	health map[string]handler.Pinger,
) (*queue.AuditDispatcher, *mongostore.AuditRepository, func(), error) {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }

	repo := mongostore.NewAuditRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, nil, err
	}

	dispatcher := queue.NewAuditDispatcher(cfg.Audit.Workers, repo, logger.Component("audit"))
	dispatcher.Start(workerCtx)
	health["mongodb"] = mongostore.Pinger{Client: client}
	return dispatcher, repo, closeFn, nil
}
