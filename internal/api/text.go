package api

import (
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// TextHandler serves text analysis.
type TextHandler struct {
	container *dependencies.Container
	reqSvc    *request.BaseService
	respSvc   *response.BaseService
}

// NewTextHandler creates a text handler.
func NewTextHandler(container *dependencies.Container, reqSvc *request.BaseService, respSvc *response.BaseService) *TextHandler {
	return &TextHandler{container: container, reqSvc: reqSvc, respSvc: respSvc}
}

// Analyze handles POST /api/v1/text/analyze.
func (h *TextHandler) Analyze(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)

	var req models.TextAnalysisRequest
	if err := h.reqSvc.ParseJSON(c, &req); err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	analyzer, err := h.container.TextAnalyzer(c.UserContext())
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	fiberlog.Infof("[%s] Text analysis requested: prompt_length=%d use_cache=%t", reqID, len(req.Prompt), req.UseCache)

	result, err := analyzer.Analyze(c.UserContext(), req)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}
	return h.respSvc.Success(c, result)
}
