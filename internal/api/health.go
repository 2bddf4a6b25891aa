package api

import (
	"context"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"

	"github.com/gofiber/fiber/v2"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler handles health check requests
type HealthHandler struct {
	container *dependencies.Container
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(container *dependencies.Container) *HealthHandler {
	return &HealthHandler{container: container}
}

// HealthCheck reports cache connectivity and provider configuration. It
// always answers 200; a missing dependency only degrades the status.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	settings := h.container.Settings()

	redisConnected := h.checkRedis(c.UserContext())
	openaiConfigured := settings.OpenAIConfigured()

	status := "healthy"
	if !openaiConfigured || (settings.RedisEnabled && !redisConnected) {
		status = "degraded"
	}

	return c.JSON(models.HealthResponse{
		Status:           status,
		RedisConnected:   redisConnected,
		OpenAIConfigured: openaiConfigured,
		CacheEnabled:     settings.RedisEnabled,
		TextProvider:     settings.TextProvider,
		Version:          config.Version,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

// checkRedis verifies Redis connectivity
func (h *HealthHandler) checkRedis(parent context.Context) bool {
	ctx, cancel := context.WithTimeout(parent, healthCheckTimeout)
	defer cancel()

	manager, err := h.container.CacheManager(ctx)
	if err != nil || !manager.Enabled() {
		return false
	}
	return manager.Ping(ctx) == nil
}
