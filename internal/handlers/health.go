package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// QueueChecker reports broker connectivity.
type QueueChecker interface {
	IsConnected() bool
}

type HealthHandler struct {
	cfg   *config.Config
	redis *redis.Client
	queue QueueChecker
}

func NewHealthHandler(cfg *config.Config, redisClient *redis.Client, queue QueueChecker) *HealthHandler {
	return &HealthHandler{
		cfg:   cfg,
		redis: redisClient,
		queue: queue,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	// Store and push provider credentials are hard requirements.
	if h.cfg.Supabase.URL != "" && h.cfg.Supabase.ServiceRoleKey != "" {
		checks["store"] = "healthy"
	} else {
		checks["store"] = "unhealthy"
	}
	if h.cfg.Firebase.ProjectID != "" && h.cfg.Firebase.ServiceAccountJSON != "" {
		checks["push"] = "healthy"
	} else {
		checks["push"] = "unhealthy"
	}

	// Redis (idempotency guard) is optional.
	if h.redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err == nil {
		checks["redis"] = "healthy"
	} else {
		checks["redis"] = "degraded"
	}

	// Delivery-report queue is optional.
	if h.queue == nil {
		checks["queue"] = "disabled"
	} else if h.queue.IsConnected() {
		checks["queue"] = "healthy"
	} else {
		checks["queue"] = "degraded"
	}

	// Determine overall status
	overallStatus := "healthy"
	for _, status := range checks {
		if status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		} else if status == "degraded" {
			overallStatus = "degraded"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"version":   "1.0.0",
	})
}
