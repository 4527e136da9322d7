package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Al-amen/exam-system/internal/config"
	"github.com/Al-amen/exam-system/internal/events"
	"github.com/Al-amen/exam-system/internal/handlers"
	"github.com/Al-amen/exam-system/internal/repositories/postgres"
	"github.com/Al-amen/exam-system/internal/services"
	"github.com/Al-amen/exam-system/internal/utils"
	"github.com/Al-amen/exam-system/internal/validator"
	"github.com/Al-amen/exam-system/pkg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.Environment)
	slog.SetDefault(logger)

	db, err := pkg.InitDatabase(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Error("failed to create kafka publisher", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("no kafka brokers configured, events stay in memory")
		publisher = events.NewMockPublisher()
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:            db,
		RedisClient:   redisClient,
		CasdoorConfig: cfg.Casdoor,
	})
	if err := repoManager.Initialize(); err != nil {
		logger.Error("failed to initialize repositories", "error", err)
		os.Exit(1)
	}
	repo := repoManager.GetRepository()

	v := validator.New()

	serviceManager, err := services.NewDefaultServiceManager(repo, logger, v, publisher)
	if err != nil {
		logger.Error("failed to create service manager", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := serviceManager.Initialize(ctx); err != nil {
		cancel()
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	cancel()

	handlerManager := handlers.NewHandlerManager(serviceManager, v, cfg.Casdoor, repo.User())

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("service manager shutdown failed", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("publisher close failed", "error", err)
	}

	if err := repoManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("repository shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}
