package request

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	// requestIDLocalKey is the shared key for storing request ID in fiber locals
	requestIDLocalKey = "request_id"
	// maxRequestIDLength is the maximum allowed length for request IDs
	maxRequestIDLength = 256
	// RequestIDHeader carries the request ID in and out
	RequestIDHeader = "X-Request-ID"
)

// Validatable is implemented by request schemas that check themselves.
type Validatable interface {
	Validate() error
}

// BaseService provides common request handling utilities that can be embedded and specialized
type BaseService struct {
	maxUploadBytes int64
}

// NewBaseService creates a new base request service. maxUploadBytes caps
// every file read through ReadUpload.
func NewBaseService(maxUploadBytes int64) *BaseService {
	return &BaseService{maxUploadBytes: maxUploadBytes}
}

// sanitizeRequestID sanitizes and caps the length of a request ID
func (s *BaseService) sanitizeRequestID(reqID string) string {
	sanitized := strings.TrimSpace(reqID)
	if len(sanitized) > maxRequestIDLength {
		sanitized = sanitized[:maxRequestIDLength]
	}
	return sanitized
}

// GetRequestID extracts or generates a request ID from the context
func (s *BaseService) GetRequestID(c *fiber.Ctx) string {
	if cachedID, ok := c.Locals(requestIDLocalKey).(string); ok && cachedID != "" {
		return cachedID
	}

	requestID := s.sanitizeRequestID(c.Get(RequestIDHeader))
	if requestID == "" {
		requestID = s.GenerateRequestID()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

// GenerateRequestID creates a new random request ID
func (s *BaseService) GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}

// ParseJSON decodes the JSON body into dest and validates it. Every failure
// is a validation error.
func (s *BaseService) ParseJSON(c *fiber.Ctx, dest Validatable) error {
	requestID := s.GetRequestID(c)

	if len(c.Body()) == 0 {
		return models.NewValidationError("request body is required",
			[]models.FieldError{{Field: "body", Reason: "is required"}}, nil)
	}

	if err := c.App().Config().JSONDecoder(c.Body(), dest); err != nil {
		fiberlog.Warnf("[%s] Failed to parse request body: %v", requestID, err)
		return models.NewValidationError("invalid request body",
			[]models.FieldError{{Field: "body", Reason: "must be valid JSON matching the schema"}}, err)
	}

	if err := dest.Validate(); err != nil {
		fiberlog.Debugf("[%s] Request validation failed: %v", requestID, err)
		return err
	}
	return nil
}

// ReadUpload reads a multipart file, enforcing the upload size limit.
func (s *BaseService) ReadUpload(fh *multipart.FileHeader, field string) ([]byte, error) {
	if s.maxUploadBytes > 0 && fh.Size > s.maxUploadBytes {
		return nil, uploadTooLarge(field, s.maxUploadBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("failed to read upload",
			[]models.FieldError{{Field: field, Reason: "could not be read"}}, err)
	}
	defer f.Close()

	limit := s.maxUploadBytes
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := utils.ReadLimited(f, limit)
	if errors.Is(err, utils.ErrUploadTooLarge) {
		return nil, uploadTooLarge(field, s.maxUploadBytes)
	}
	if err != nil {
		return nil, models.NewValidationError("failed to read upload",
			[]models.FieldError{{Field: field, Reason: "could not be read"}}, err)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("upload is empty",
			[]models.FieldError{{Field: field, Reason: "must not be empty"}}, nil)
	}
	return data, nil
}

// FormBool reads a boolean form or query value, returning def when absent.
func (s *BaseService) FormBool(c *fiber.Ctx, key string, def bool) (bool, error) {
	raw := c.FormValue(key)
	if raw == "" {
		raw = c.Query(key)
	}
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, models.NewValidationError("invalid form value",
			[]models.FieldError{{Field: key, Reason: "must be a boolean"}}, err)
	}
	return v, nil
}

// FormString reads a form value, falling back to the query string.
func (s *BaseService) FormString(c *fiber.Ctx, key string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return c.Query(key)
}

func uploadTooLarge(field string, limit int64) error {
	return models.NewValidationError("upload too large",
		[]models.FieldError{{Field: field, Reason: fmt.Sprintf("must not exceed %d bytes", limit)}}, utils.ErrUploadTooLarge)
}
