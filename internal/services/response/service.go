package response

import (
	"errors"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// BaseService provides common HTTP response utilities that can be embedded and specialized
type BaseService struct{}

// NewBaseService creates a new base response service
func NewBaseService() *BaseService {
	return &BaseService{}
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Message        string              `json:"message"`
	Type           string              `json:"type"`
	Code           string              `json:"code,omitempty"`
	Details        []models.FieldError `json:"details,omitempty"`
	UpstreamStatus int                 `json:"upstream_status,omitempty"`
}

// Error sends an error response with specified status, type, and code
func (s *BaseService) Error(c *fiber.Ctx, status int, message, errorType, code string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	})
}

// HandleError maps err onto the error envelope. AppErrors keep their status
// and type; anything else becomes a 500 without internal detail.
func (s *BaseService) HandleError(c *fiber.Ctx, err error, requestID string) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return s.Error(c, fiberErr.Code, fiberErr.Message, "http_error", "")
	}

	appErr := models.SanitizeError(err)
	status := appErr.GetStatusCode()
	if status >= fiber.StatusInternalServerError {
		fiberlog.Errorf("[%s] Error %d: %v", requestID, status, err)
	} else {
		fiberlog.Warnf("[%s] Error %d: %v", requestID, status, err)
	}

	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Message:        appErr.Message,
			Type:           string(appErr.Type),
			Code:           appErr.Code,
			Details:        appErr.Details,
			UpstreamStatus: appErr.UpstreamStatus,
		},
	})
}

// Unauthorized sends a 401 response
func (s *BaseService) Unauthorized(c *fiber.Ctx, message string) error {
	return s.Error(c, fiber.StatusUnauthorized, message, string(models.ErrorTypeAuthentication), "unauthorized")
}

// Success sends a 200 OK response with the provided data
func (s *BaseService) Success(c *fiber.Ctx, data any) error {
	return c.JSON(data)
}
