package main

import (
	"log"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/Zienararya/e-fridge/internal/handlers"
	"github.com/Zienararya/e-fridge/internal/middleware"
	"github.com/Zienararya/e-fridge/internal/queue"
	"github.com/Zienararya/e-fridge/internal/services"
	"github.com/Zienararya/e-fridge/pkg/redis"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	if cfg.MissingEnv() {
		// keep serving; the handler answers 500 Missing env per request
		logger.Warn("required Supabase/Firebase configuration is missing; push requests will fail")
	}

	redisClient := redisClientOrNil(cfg, logger)

	var rabbitClient *queue.RabbitMqClient
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = queue.NewRabbitMqClient(cfg.RabbitMQ)
		if err != nil {
			logger.Warn("failed to connect to rabbitmq, delivery reports disabled", zap.Error(err))
			rabbitClient = nil
		} else if err := rabbitClient.SetUpExchangeAndQueue(); err != nil {
			logger.Warn("failed to declare rabbitmq topology, delivery reports disabled", zap.Error(err))
			rabbitClient.CloseConnection()
			rabbitClient = nil
		}
	}
	if rabbitClient != nil {
		defer rabbitClient.CloseConnection()
	}

	store := services.NewStoreClient(cfg.Supabase)
	sender := services.NewFCMClient(cfg.Firebase, logger)

	var reports handlers.ReportPublisher
	var queueCheck handlers.QueueChecker
	if rabbitClient != nil {
		reports = rabbitClient
		queueCheck = rabbitClient
	}

	pushHandler := handlers.NewPushHandler(cfg, logger, store, sender, redisClient, reports)
	healthHandler := handlers.NewHealthHandler(cfg, redisClient, queueCheck)

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.CorrelationID())

	r.POST("/push", middleware.WebhookAuth(cfg.Auth.WebhookSecret), pushHandler.HandlePush)
	r.GET("/health", healthHandler.HealthCheck)

	logger.Info("push dispatcher listening", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func redisClientOrNil(cfg *config.Config, logger *zap.Logger) *goredis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client, err := redis.InitRedis(cfg.Redis)
	if err != nil {
		logger.Warn("failed to connect to redis, idempotency guard disabled", zap.Error(err))
		return nil
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	return client
}
