package api

import (
	"encoding/base64"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	audioFileField = "file"
	binaryFormat   = "binary"
)

// AudioHandler serves transcription and speech synthesis.
type AudioHandler struct {
	container *dependencies.Container
	reqSvc    *request.BaseService
	respSvc   *response.BaseService
}

// NewAudioHandler creates an audio handler.
func NewAudioHandler(container *dependencies.Container, reqSvc *request.BaseService, respSvc *response.BaseService) *AudioHandler {
	return &AudioHandler{container: container, reqSvc: reqSvc, respSvc: respSvc}
}

// Transcribe handles POST /api/v1/audio/transcribe with a multipart "file".
func (h *AudioHandler) Transcribe(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)

	fh, err := c.FormFile(audioFileField)
	if err != nil {
		return h.respSvc.HandleError(c, models.NewValidationError("audio file is required",
			[]models.FieldError{{Field: audioFileField, Reason: "is required"}}, err), reqID)
	}

	data, err := h.reqSvc.ReadUpload(fh, audioFileField)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	useCache, err := h.reqSvc.FormBool(c, "use_cache", true)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	req := models.AudioTranscriptionRequest{
		Audio:       data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Language:    h.reqSvc.FormString(c, "language"),
		Prompt:      h.reqSvc.FormString(c, "prompt"),
		UseCache:    useCache,
	}
	if err := req.Validate(); err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	processor, err := h.container.AudioProcessor(c.UserContext())
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	fiberlog.Infof("[%s] Transcription requested: file=%s size=%d", reqID, fh.Filename, len(data))

	result, err := processor.Transcribe(c.UserContext(), req)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}
	return h.respSvc.Success(c, result)
}

// Synthesize handles POST /api/v1/audio/synthesize. With ?format=binary the
// raw audio is returned instead of the JSON result.
func (h *AudioHandler) Synthesize(c *fiber.Ctx) error {
	reqID := h.reqSvc.GetRequestID(c)

	var req models.AudioSynthesisRequest
	if err := h.reqSvc.ParseJSON(c, &req); err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	processor, err := h.container.AudioProcessor(c.UserContext())
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	fiberlog.Infof("[%s] Speech synthesis requested: text_length=%d voice=%q", reqID, len(req.Text), req.Voice)

	result, err := processor.Synthesize(c.UserContext(), req)
	if err != nil {
		return h.respSvc.HandleError(c, err, reqID)
	}

	if c.Query("format") != binaryFormat {
		return h.respSvc.Success(c, result)
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	if err != nil {
		return h.respSvc.HandleError(c, models.NewInternalError("failed to decode synthesized audio", err), reqID)
	}
	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set("X-Cache-Hit", boolHeader(result.Cached))
	return c.Send(audio)
}

func boolHeader(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
