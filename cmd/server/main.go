package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/anniversary/internal/config"
	"github.com/HammerMeetNail/anniversary/internal/database"
	"github.com/HammerMeetNail/anniversary/internal/handlers"
	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/middleware"
	"github.com/HammerMeetNail/anniversary/internal/services"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting anniversary server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...", map[string]interface{}{"path": cfg.Database.MigrationsPath})
	version, err := database.MigrateUp(cfg.Database.DSN(), cfg.Database.MigrationsPath)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	logger.Info("Migrations completed", map[string]interface{}{"version": version})

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(database.RedisOptions{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	pool := db.Adapter()
	uow := store.NewPostgres(pool)

	pairing := services.NewPairingService(uow)
	pairing.SetLogger(logger.WithField("component", "pairing"))
	if cfg.Pairing.EventsChannel != "" {
		pairing.SetEventPublisher(services.NewRedisEventPublisher(redisDB.Client, cfg.Pairing.EventsChannel))
	}

	handler := newRouter(app{
		logger:      logger,
		pairing:     pairing,
		users:       services.NewUserService(uow),
		auth:        services.NewAuthService(redisDB.Client, pool, uow),
		health:      handlers.NewHealthHandler(db, redisDB),
		rateCounter: redisDB.Client,
		rateLimit:   middleware.RateLimitConfig{Limit: cfg.Pairing.RateLimit, Window: cfg.Pairing.RateWindow},
		secure:      cfg.Server.Secure,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
