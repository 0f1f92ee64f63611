package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tit-pharmacy/internal/catalog"
	"tit-pharmacy/internal/config"
	"tit-pharmacy/internal/database"
	"tit-pharmacy/internal/logger"
	"tit-pharmacy/internal/metrics"
	"tit-pharmacy/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

func openDatabase(cfg *config.Config, log *zap.Logger) *sql.DB {
	if cfg.Catalog.Source != catalog.SourcePostgres {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Catalog.FetchTimeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")
	return db
}

func openRedis(cfg *config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		log.Info("Redis not configured; rate limiting and document cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Both users of the client fall through when Redis is down
		log.Warn("Redis unreachable at startup", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}
	return client
}

// loadCatalog fills the store before the server starts. The store logs the
// outcome; on failure the service starts with an empty catalog.
func loadCatalog(store *catalog.Store, src catalog.Source, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_ = store.Load(ctx, src)
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, logger.WithLevel(cfg.Server.LogLevel))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting pharmacy inventory service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
	)

	m := metrics.New(cfg.Metrics.Prefix)
	db := openDatabase(cfg, log)
	rdb := openRedis(cfg, log)

	src, err := catalog.NewSource(cfg.Catalog, db, rdb, logger.Component(log, "source"))
	if err != nil {
		log.Fatal("Invalid catalog source", zap.Error(err))
	}

	store := catalog.NewStore(logger.Component(log, "catalog"), catalog.WithMetrics(m))

	loadCatalog(store, src, cfg.Catalog.FetchTimeout)

	srv := server.NewServer(cfg, log, server.Dependencies{
		Store:   store,
		Source:  src,
		Metrics: m,
		DB:      db,
		Redis:   rdb,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
