/*
main.go - Application entry point

PURPOSE:
  Starts the vacation engine HTTP server. Loads configuration, builds the
  store, lock backend and policy, wires the API and handles graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, apply flag overrides
  2. Build the zap logger
  3. Open the SQLite store
  4. Connect Redis when REDIS_ADDR is set (otherwise in-process locks)
  5. Load the accrual policy
  6. Build handler and router, start the server

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_ADDR)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  See config/config.go. The usual ones:
  APP_ENV, APP_ADDR, LOG_LEVEL, DB_PATH, REDIS_ADDR, POLICY_FILE

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close Redis and database connections

EXAMPLES:
  ./server -db="./data/vacaciones.db"
  REDIS_ADDR=localhost:6379 POLICY_FILE=policy.json ./server -port=3000
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/vacation-engine/api"
	"github.com/warp/vacation-engine/config"
	"github.com/warp/vacation-engine/factory"
	"github.com/warp/vacation-engine/store/redislock"
	"github.com/warp/vacation-engine/store/sqlite"
	"github.com/warp/vacation-engine/vacation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides APP_ADDR)")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	if *port > 0 {
		cfg.AppAddr = fmt.Sprintf(":%d", *port)
	}
	cfg.DBPath = *dbPath

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	policy, err := factory.NewPolicyFactory().LoadFile(cfg.PolicyFile)
	if err != nil {
		return err
	}

	deps := vacation.Deps{
		Store:  store,
		Policy: policy,
		Logger: logger,
	}
	health := []api.Pinger{store}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		locker := redislock.New(client,
			redislock.WithTTL(cfg.LockTTL),
			redislock.WithLogger(logger))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := locker.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
		}
		deps.Locker = locker
		health = append(health, locker)
		logger.Info("using redis locks", zap.String("addr", cfg.RedisAddr))
	}

	handler := api.NewHandler(deps, health...)
	router := api.NewRouter(handler, api.Options{
		Logger:             logger,
		Metrics:            api.NewMetrics(),
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.AppRequestTimeout,
		Production:         cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.AppAddr),
			zap.String("env", cfg.AppEnv),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	return zc.Build()
}
