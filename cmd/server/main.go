package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/openkermesse/stallpoints/internal/api"
	redisstore "github.com/openkermesse/stallpoints/internal/datastore/redis"
	"github.com/openkermesse/stallpoints/internal/factory"
	"github.com/openkermesse/stallpoints/internal/services/auth"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	authCfg, err := authConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Build factory config from environment
	cfg := factory.Config{
		AuthConfig: authCfg,
		Logger:     logger,
		StoreType:  os.Getenv("STORE_TYPE"),
	}

	// Configure Redis if store type is redis
	if cfg.StoreType == factory.StoreTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstore.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	app.Start()
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error closing application", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Ledger:      app.Ledger,
		Registry:    app.Registry,
		Leaderboard: app.Leaderboard,
		Hub:         app.Hub,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// authConfigFromEnv builds the auth config from the environment. Credentials
// are taken pre-hashed (ADMIN_PASSWORD_HASH) or plaintext (ADMIN_PASSWORD),
// with the hash winning when both are set.
func authConfigFromEnv() (auth.Config, error) {
	cfg := auth.DefaultConfig()

	if u := os.Getenv("ADMIN_USERNAME"); u != "" {
		cfg.AdminUsername = u
	}
	if u := os.Getenv("GIFTCOUNTER_USERNAME"); u != "" {
		cfg.GiftCounterUsername = u
	}

	var err error
	cfg.AdminPasswordHash, err = credentialHash("ADMIN_PASSWORD_HASH", "ADMIN_PASSWORD")
	if err != nil {
		return auth.Config{}, err
	}
	cfg.GiftCounterPasswordHash, err = credentialHash("GIFTCOUNTER_PASSWORD_HASH", "GIFTCOUNTER_PASSWORD")
	if err != nil {
		return auth.Config{}, err
	}

	return cfg, nil
}

func credentialHash(hashVar, plainVar string) (string, error) {
	if hash := os.Getenv(hashVar); hash != "" {
		return hash, nil
	}
	if plain := os.Getenv(plainVar); plain != "" {
		return auth.HashCredential(plain)
	}
	// No credential configured; logins for this account always fail.
	return "", nil
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
