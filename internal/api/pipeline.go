package api

import (
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// PipelineHandler runs multimodal pipelines.
type PipelineHandler struct {
	container *dependencies.Container
	reqSvc    *request.BaseService
	respSvc   *response.BaseService
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(container *dependencies.Container, reqSvc *request.BaseService, respSvc *response.BaseService) *PipelineHandler {
	return &PipelineHandler{container: container, reqSvc: reqSvc, respSvc: respSvc}
}

// Run handles POST /api/v1/multimodal/pipeline. Task failures are reported
// per task; the response is 200 whenever the request itself was valid.
func (h *PipelineHandler) Run(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)

	var req models.MultimodalPipelineRequest
	if err := h.reqSvc.ParseJSON(c, &req); err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	p, err := h.container.MultimodalPipeline(c.UserContext())
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	result, err := p.Run(c.UserContext(), req)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	fiberlog.Infof("[%s] Pipeline %s finished: status=%s succeeded=%d failed=%d skipped=%d",
		reqID, result.RunID, result.Status, result.Succeeded, result.Failed, result.Skipped)
	return h.respSvc.Success(c, result)
}
