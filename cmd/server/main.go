package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corplearn/training-service/internal/auth"
	"github.com/corplearn/training-service/internal/cache"
	"github.com/corplearn/training-service/internal/config"
	"github.com/corplearn/training-service/internal/events"
	"github.com/corplearn/training-service/internal/handlers"
	"github.com/corplearn/training-service/internal/repositories/postgres"
	"github.com/corplearn/training-service/internal/services"
	"github.com/corplearn/training-service/internal/utils"
	"github.com/corplearn/training-service/internal/validator"
	"github.com/corplearn/training-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		logger.Error("Failed to migrate schema", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		TopicName:    cfg.EventTopic,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	cacheService := cache.NewRedisCache(redisClient, logger)
	v := validator.New()

	loader := services.NewPoolLoader(repo, cacheService, redisClient, logger)
	if err := loader.Start(context.Background()); err != nil {
		logger.Error("Failed to start question pool loader", "error", err)
		os.Exit(1)
	}
	defer loader.Stop()

	committer := services.NewResultCommitter(repo, logger)
	sessionService := services.NewSessionService(repo, loader, committer, publisher, logger, v)
	courseService := services.NewCourseService(repo, loader, logger, v)
	progressService := services.NewProgressService(repo, publisher, logger, v)
	statsService := services.NewStatsService(repo, logger)

	authenticator := auth.NewAuthenticator(cfg, repo.User(), logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.RequestLogger(logger), gin.Recovery())

	handlerManager := handlers.NewHandlerManager(
		sessionService,
		courseService,
		progressService,
		statsService,
		authenticator,
		logger,
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Training service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
