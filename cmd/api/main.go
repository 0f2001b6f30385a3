// @title                       Puller Dispatch API
// @version                     1.0
// @description                 Ride marketplace: account approval, exclusive ride claims, ratings, notifications and admin analytics.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/iotrix/puller-dispatch/docs"
	"github.com/iotrix/puller-dispatch/internal/api"
	"github.com/iotrix/puller-dispatch/internal/core/service"
	"github.com/iotrix/puller-dispatch/internal/infrastructure/config"
	mongodb "github.com/iotrix/puller-dispatch/internal/infrastructure/db/mongo"
	redisdb "github.com/iotrix/puller-dispatch/internal/infrastructure/db/redis"
	"github.com/iotrix/puller-dispatch/internal/infrastructure/http/handlers"
	"github.com/iotrix/puller-dispatch/internal/infrastructure/queue"
	"github.com/iotrix/puller-dispatch/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet; fall back to defaults.
		logger.Init(logger.Options{})
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Development()})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}()

	// --- Storage ---
	accounts := mongodb.NewAccountRepository(db)
	rides := mongodb.NewRideRepository(db)
	notifications := mongodb.NewNotificationRepository(db)
	tx := mongodb.NewTransactor(mongoClient)

	// --- Event stream ---
	events := queue.NewDispatcher(cfg.Events.Workers, redisdb.NewEventPublisher(rdb), logger.Component(log, "events"))

	// --- Services ---
	notifier := service.NewNotificationService(notifications, accounts, logger.Component(log, "notifications"))
	ratings := service.NewRatingService(rides, accounts, notifier, tx, events, logger.Component(log, "ratings"))
	svc := api.Services{
		Accounts:      service.NewAccountService(accounts, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger.Component(log, "accounts")),
		Approvals:     service.NewApprovalService(accounts, notifier, tx, logger.Component(log, "approvals")),
		Dispatch:      service.NewDispatchService(rides, accounts, notifier, ratings, tx, events, logger.Component(log, "dispatch")),
		Ratings:       ratings,
		Notifications: notifier,
		Analytics: service.NewAnalyticsService(rides, accounts, redisdb.NewAnalyticsCache(rdb),
			cfg.Analytics.CacheTTL, logger.Component(log, "analytics")),
	}

	health := handlers.NewHealthDependenciesHandler(map[string]handlers.Check{
		"mongo": handlers.MongoCheck(db),
		"redis": handlers.RedisCheck(rdb),
	})
	e := api.NewRouter(svc, health, cfg.Auth.JWTSecret, logger.Component(log, "http"))

	// The event workers outlive the HTTP server so transitions committed
	// during shutdown are still published.
	eventsCtx, stopEvents := context.WithCancel(context.Background())
	defer stopEvents()
	events.Start(eventsCtx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)

		stopEvents()
		events.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
