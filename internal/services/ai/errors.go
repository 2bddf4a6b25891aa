package ai

import (
	"errors"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/metrics"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"
)

// upstreamError extracts the HTTP status and message carried by an SDK error.
// The status is 0 when the call never produced a response.
func upstreamError(err error) (int, string) {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, firstNonEmpty(openaiErr.Message, err.Error())
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, err.Error()
	}

	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code, firstNonEmpty(geminiErr.Message, err.Error())
	}
	var geminiErrPtr *genai.APIError
	if errors.As(err, &geminiErrPtr) {
		return geminiErrPtr.Code, firstNonEmpty(geminiErrPtr.Message, err.Error())
	}

	return 0, err.Error()
}

// wrapError converts an SDK error into a provider AppError.
func wrapError(provider, operation string, err error) *models.AppError {
	status, message := upstreamError(err)
	return models.NewProviderError(provider, operation+" failed: "+message, status, err)
}

// missingKey is returned before any network call when no API key is configured.
func missingKey(provider string) *models.AppError {
	return models.NewProviderError(provider, "API key not configured", 0, nil)
}

// observe records provider call metrics.
func observe(provider, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordProviderCall(provider, operation, status, time.Since(start).Seconds())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
