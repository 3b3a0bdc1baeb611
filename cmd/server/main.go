package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/configs"
	"github.com/casamapa/casamapa/internal/application/services"
	"github.com/casamapa/casamapa/internal/core/ports"
	"github.com/casamapa/casamapa/internal/infrastructure/cache"
	"github.com/casamapa/casamapa/internal/infrastructure/db"
	"github.com/casamapa/casamapa/internal/infrastructure/health"
	"github.com/casamapa/casamapa/internal/infrastructure/httpserver"
	"github.com/casamapa/casamapa/internal/infrastructure/redis"
	"github.com/casamapa/casamapa/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting casamapa server...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Initialize the redundant cache backend pool. A backend that fails to
	// connect starts unhealthy and rejoins once reachable; an empty pool
	// runs the cache in fallback-only mode.
	var backends []ports.KeyValueBackend
	var stores []ports.PresenceStore
	for _, url := range cfg.Cache.BackendURLs {
		backend, err := redis.NewBackend(url, &cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Warn("Skipping invalid backend URL")
			continue
		}
		connectCtx, cancel := context.WithTimeout(context.Background(), cfg.Cache.DialTimeout)
		_ = backend.Connect(connectCtx)
		cancel()
		defer backend.Close()
		backends = append(backends, backend)
		stores = append(stores, backend)
	}
	if len(backends) == 0 {
		logger.Warn("No cache backends configured; running on in-memory fallback only")
	}

	cacheManager := cache.NewManager(backends, logger)

	limiter := services.NewAbuseLimiterService(cacheManager, &services.AbuseLimiterConfig{
		KeyPrefix:       cfg.RateLimit.KeyPrefix,
		CooldownSeconds: cfg.RateLimit.CooldownSeconds,
		DuplicateWindow: cfg.RateLimit.DuplicateWindow,
	}, logger)

	presence := services.NewPresenceService(stores, services.PresenceConfig{
		SessionTTL:         cfg.Presence.SessionTTL,
		MessageLogTTL:      cfg.Presence.MessageLogTTL,
		MessageLogCapacity: int64(cfg.Presence.MessageLogCapacity),
		MaxMessageLength:   cfg.Presence.MaxMessageLength,
		PrivateRoomTTL:     cfg.Presence.PrivateRoomTTL,
	}, logger)

	noteRepo := repositories.NewNoteRepository(database, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database)}
	for _, b := range backends {
		hcSlice = append(hcSlice, health.NewBackendHealthChecker(b))
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		Cache:          cacheManager,
		Presence:       presence,
		Limiter:        limiter,
		Notes:          noteRepo,
		HealthCheckers: hcSlice,
		CacheTTLs:      cfg.Cache,
		Quotas:         cfg.RateLimit,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
