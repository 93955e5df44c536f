package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/app"
	"github.com/bundlewise/bundle-service/app/admin"
	"github.com/bundlewise/bundle-service/app/storefront"
	widgetapp "github.com/bundlewise/bundle-service/app/widget"
	"github.com/bundlewise/bundle-service/bundles"
	"github.com/bundlewise/bundle-service/catalog"
	"github.com/bundlewise/bundle-service/config"
	"github.com/bundlewise/bundle-service/database"
	"github.com/bundlewise/bundle-service/models"
	"github.com/bundlewise/bundle-service/pkg/logger"
	"github.com/bundlewise/bundle-service/widget"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	zlog := logger.L()
	zlog.Info("Starting bundle service",
		zap.String("app", cfg.AppName),
		zap.String("log_level", cfg.LogLevel),
	)

	if err := database.Ensure(cfg.DatabaseURL); err != nil {
		zlog.Fatal("Failed to ensure database", zap.Error(err))
	}
	db, err := database.Open(cfg.DatabaseURL, zlog)
	if err != nil {
		zlog.Fatal("Failed to open database", zap.Error(err))
	}

	var catalogClient catalog.Client = catalog.NewGraphQLClient(
		cfg.CatalogEndpoint, cfg.CatalogToken, nil, zlog)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zlog.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			zlog.Warn("Redis unreachable, catalog cache disabled", zap.Error(err))
		} else {
			catalogClient = catalog.NewCachedClient(catalogClient, redisClient, cfg.CatalogCacheTTL, zlog)
			zlog.Info("Catalog cache enabled", zap.Duration("ttl", cfg.CatalogCacheTTL))
		}
	}

	repo := models.NewBundlesRepository(db)
	service := bundles.NewService(repo, catalogClient, zlog)

	storefrontBase := cfg.StorefrontBaseURL
	if storefrontBase == "" {
		storefrontBase = "http://" + cfg.ServerAddress()
	}
	widgetClient := widget.NewClient(storefrontBase, nil, cfg.WidgetBatchSize, cfg.WidgetBatchDelay, zlog)

	router := app.NewRouter(
		admin.NewHandler(service, zlog),
		storefront.NewHandler(repo, zlog),
		widgetapp.NewHandler(widgetClient, zlog),
		zlog,
	)

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		zlog.Info("Server listening", zap.String("address", cfg.ServerAddress()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zlog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errChan:
		zlog.Fatal("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Graceful shutdown failed", zap.Error(err))
	}

	zlog.Info("Server shutdown complete")
}
