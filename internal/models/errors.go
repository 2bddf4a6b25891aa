package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed or out-of-range requests (422)
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeAuthentication represents authentication errors (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeConnection represents a cache backend that could not be reached at connect time
	ErrorTypeConnection ErrorType = "connection_error"
	// ErrorTypeCacheUnavailable represents a failed cache operation; callers treat it as a miss
	ErrorTypeCacheUnavailable ErrorType = "cache_unavailable"
	// ErrorTypeProvider represents a failed call to the upstream AI provider (500)
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeConfiguration represents missing or invalid settings at startup
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// ErrorTypeRateLimit represents rate limiting errors (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInternal represents internal server errors (500)
	ErrorTypeInternal ErrorType = "internal_error"
)

// FieldError describes a single rejected request field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// AppError represents a structured application error
type AppError struct {
	Type           ErrorType    `json:"type"`
	Message        string       `json:"message"`
	Code           string       `json:"code,omitzero"`
	StatusCode     int          `json:"-"`
	UpstreamStatus int          `json:"upstream_status,omitzero"`
	Retryable      bool         `json:"retryable"`
	Details        []FieldError `json:"details,omitzero"`
	Cause          error        `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for the error
func (e *AppError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeConnection, ErrorTypeCacheUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, details []FieldError, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Code:       "invalid_request",
		StatusCode: http.StatusUnprocessableEntity,
		Details:    details,
		Cause:      cause,
	}
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		Code:       "unauthorized",
		StatusCode: http.StatusUnauthorized,
	}
}

// NewConnectionError creates an error for a cache backend that could not be reached
func NewConnectionError(backend string, cause error) *AppError {
	return &AppError{
		Type:      ErrorTypeConnection,
		Message:   fmt.Sprintf("failed to connect to %s", backend),
		Code:      "CONNECTION_FAILED",
		Retryable: true,
		Cause:     cause,
	}
}

// NewCacheUnavailableError creates an error for a failed cache operation
func NewCacheUnavailableError(operation string, cause error) *AppError {
	return &AppError{
		Type:      ErrorTypeCacheUnavailable,
		Message:   fmt.Sprintf("cache %s failed", operation),
		Code:      "CACHE_UNAVAILABLE",
		Retryable: true,
		Cause:     cause,
	}
}

// NewProviderError creates a provider error. upstreamStatus is the HTTP status
// returned by the provider, or 0 when the call never got a response.
func NewProviderError(provider, message string, upstreamStatus int, cause error) *AppError {
	return &AppError{
		Type:           ErrorTypeProvider,
		Message:        fmt.Sprintf("provider %s error: %s", provider, message),
		Code:           fmt.Sprintf("PROVIDER_%s_ERROR", provider),
		StatusCode:     http.StatusInternalServerError,
		UpstreamStatus: upstreamStatus,
		Retryable:      upstreamStatus == 0 || upstreamStatus == http.StatusTooManyRequests || upstreamStatus >= 500,
		Cause:          cause,
	}
}

// NewConfigurationError creates an error for invalid startup settings
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Message: message,
		Code:    "INVALID_CONFIGURATION",
		Cause:   cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(limit string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("rate limit exceeded: %s", limit),
		Code:       "RATE_LIMIT_EXCEEDED",
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// SanitizeError sanitizes an error for external consumption
func SanitizeError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		// Return a copy without internal details
		return &AppError{
			Type:           appErr.Type,
			Message:        appErr.Message,
			Code:           appErr.Code,
			StatusCode:     appErr.GetStatusCode(),
			UpstreamStatus: appErr.UpstreamStatus,
			Retryable:      appErr.Retryable,
			Details:        appErr.Details,
		}
	}

	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
	}
}
