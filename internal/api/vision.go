package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const visionFilesField = "files"

// VisionHandler serves image analysis.
type VisionHandler struct {
	container *dependencies.Container
	reqSvc    *request.BaseService
	respSvc   *response.BaseService
	maxFiles  int
}

// NewVisionHandler creates a vision handler accepting up to maxFiles images.
func NewVisionHandler(container *dependencies.Container, reqSvc *request.BaseService, respSvc *response.BaseService, maxFiles int) *VisionHandler {
	return &VisionHandler{container: container, reqSvc: reqSvc, respSvc: respSvc, maxFiles: maxFiles}
}

// Analyze handles POST /api/v1/vision/analyze with multipart "files" and a
// prompt taken from the query string or the form.
func (h *VisionHandler) Analyze(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)

	req, err := h.parseRequest(c)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	analyzer, err := h.container.VisionAnalyzer(c.UserContext())
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	fiberlog.Infof("[%s] Vision analysis requested: images=%d", reqID, len(req.Images))

	result, err := analyzer.Analyze(c.UserContext(), *req)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}
	return h.respSvc.Success(c, result)
}

func (h *VisionHandler) parseRequest(c *fiber.Ctx) (*models.VisionAnalysisRequest, error) {
	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File[visionFilesField]
	}

	if len(files) == 0 {
		return nil, models.NewValidationError("at least one image is required",
			[]models.FieldError{{Field: visionFilesField, Reason: "is required"}}, nil)
	}
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		return nil, models.NewValidationError("too many images",
			[]models.FieldError{{Field: visionFilesField, Reason: fmt.Sprintf("must contain at most %d files", h.maxFiles)}}, nil)
	}

	images := make([]models.ImageInput, 0, len(files))
	for i, fh := range files {
		field := fmt.Sprintf("%s[%d]", visionFilesField, i)
		data, err := h.reqSvc.ReadUpload(fh, field)
		if err != nil {
			return nil, err
		}
		images = append(images, models.ImageInput{
			Data:     data,
			MimeType: imageMimeType(fh.Header.Get(fiber.HeaderContentType), data),
			Filename: fh.Filename,
		})
	}

	prompt := h.reqSvc.FormString(c, "prompt")
	if prompt == "" {
		prompt = models.DefaultVisionPrompt
	}

	useCache, err := h.reqSvc.FormBool(c, "use_cache", true)
	if err != nil {
		return nil, err
	}

	req := &models.VisionAnalysisRequest{
		Prompt:   prompt,
		Images:   images,
		Detail:   h.reqSvc.FormString(c, "detail"),
		UseCache: useCache,
	}

	if raw := h.reqSvc.FormString(c, "max_tokens"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, models.NewValidationError("invalid form value",
				[]models.FieldError{{Field: "max_tokens", Reason: "must be an integer"}}, err)
		}
		req.MaxTokens = &n
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// imageMimeType prefers a declared image type and otherwise sniffs the bytes.
func imageMimeType(declared string, data []byte) string {
	switch declared {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return declared
	}
	return http.DetectContentType(data)
}
