package api

import (
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/auth"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// CacheHandler exposes cache administration.
type CacheHandler struct {
	container *dependencies.Container
	reqSvc    *request.BaseService
	respSvc   *response.BaseService
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(container *dependencies.Container, reqSvc *request.BaseService, respSvc *response.BaseService) *CacheHandler {
	return &CacheHandler{container: container, reqSvc: reqSvc, respSvc: respSvc}
}

// Delete handles DELETE /api/v1/cache/:key.
func (h *CacheHandler) Delete(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)
	key := c.Params("key")

	manager, err := h.container.CacheManager(c.UserContext())
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	if err := manager.Delete(c.UserContext(), key); err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	subject, ok := auth.GetSubject(c)
	if !ok {
		subject = "anonymous"
	}
	fiberlog.Infof("[%s] Cache entry evicted by %s: %s", reqID, subject, key)
	return h.respSvc.Success(c, fiber.Map{
		"key":     key,
		"deleted": true,
	})
}
