// Package models holds the public configuration types accepted by the
// builder.
package models

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig configures the sliding window limiter. KeyFunc defaults to
// the client IP.
type RateLimitConfig struct {
	Max        int
	Expiration time.Duration
	KeyFunc    func(*fiber.Ctx) string
}

// TimeoutConfig bounds each request's user context.
type TimeoutConfig struct {
	Timeout time.Duration
}
