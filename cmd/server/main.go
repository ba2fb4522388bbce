// Package main is the entry point for the beer stock API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/beerstock/internal/auth"
	"github.com/vyrodovalexey/beerstock/internal/config"
	"github.com/vyrodovalexey/beerstock/internal/db"
	"github.com/vyrodovalexey/beerstock/internal/handler"
	"github.com/vyrodovalexey/beerstock/internal/server"
	"github.com/vyrodovalexey/beerstock/internal/service"
	"github.com/vyrodovalexey/beerstock/internal/store"
	"github.com/vyrodovalexey/beerstock/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("auth_mode", cfg.AuthMode),
		zap.Float64("rate_limit", cfg.RateLimit),
	)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.OTLPEndpoint, handler.Version, logger)
	if err != nil {
		logger.Error("failed to set up tracing", zap.Error(err))
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	authenticator, err := createAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	beerStore, closeStore, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	feed := handler.NewStockFeed(logger)
	beerService := service.NewBeerService(beerStore, feed, logger)

	srv := server.New(cfg, logger, server.Dependencies{
		Service:       beerService,
		Pinger:        beerStore,
		Feed:          feed,
		Authenticator: authenticator,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger builds a JSON zap logger at level, falling back to info.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.MessageKey = "message"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder

	return zapConfig.Build()
}

// openStore returns the configured beer store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }

	var driver, dsn string
	switch cfg.StoreDriver {
	case "memory", "":
		logger.Info("using in-memory store")
		return store.NewMemoryStore(), noop, nil
	case "sqlite":
		driver, dsn = db.DriverSQLite, cfg.SQLiteDSN()
	case "postgres":
		driver, dsn = db.DriverPostgres, cfg.StoreDSN
	default:
		return nil, noop, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}

	conn, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return nil, noop, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if err := db.Migrate(ctx, conn, driver); err != nil {
		_ = conn.Close()
		return nil, noop, fmt.Errorf("migrating %s database: %w", driver, err)
	}

	logger.Info("using SQL store", zap.String("driver", driver))
	return store.NewSQLStore(conn, driver), conn.Close, nil
}

// createAuthenticator returns the authenticator for cfg.AuthMode, or nil
// when authentication is disabled.
func createAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	switch cfg.AuthMode {
	case "none", "":
		logger.Info("authentication disabled")
		return nil, nil
	case "basic":
		logger.Info("authentication mode: basic")
		return newBasic(cfg)
	case "apikey":
		logger.Info("authentication mode: API key")
		return newAPIKey(cfg)
	case "jwt":
		logger.Info("authentication mode: JWT", zap.String("issuer", cfg.JWTIssuer))
		return newJWT(cfg)
	case "multi":
		logger.Info("authentication mode: multi")
		return createMultiAuthenticator(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.AuthMode)
	}
}

// createMultiAuthenticator combines every configured scheme, trying JWT
// first, then basic, then API keys.
func createMultiAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	var authenticators []auth.Authenticator

	if cfg.JWTSecret != "" {
		a, err := newJWT(cfg)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, a)
		logger.Info("multi-auth: JWT enabled")
	}

	if cfg.BasicAuthUsers != "" {
		a, err := newBasic(cfg)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, a)
		logger.Info("multi-auth: basic auth enabled")
	}

	if cfg.APIKeys != "" {
		a, err := newAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, a)
		logger.Info("multi-auth: API key auth enabled")
	}

	if len(authenticators) == 0 {
		return nil, fmt.Errorf("multi auth mode requires at least one authenticator")
	}

	return auth.NewMultiAuthenticator(authenticators...), nil
}

func newBasic(cfg *config.Config) (auth.Authenticator, error) {
	a, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
	if err != nil {
		return nil, fmt.Errorf("creating basic authenticator: %w", err)
	}
	return a, nil
}

func newAPIKey(cfg *config.Config) (auth.Authenticator, error) {
	a, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
	if err != nil {
		return nil, fmt.Errorf("creating API key authenticator: %w", err)
	}
	return a, nil
}

func newJWT(cfg *config.Config) (auth.Authenticator, error) {
	a, err := auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("creating JWT authenticator: %w", err)
	}
	return a, nil
}
