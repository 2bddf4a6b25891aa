package middleware

import (
	"strconv"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/metrics"

	"github.com/gofiber/fiber/v2"
)

// UsageTracker records per-route request counts and latency.
type UsageTracker struct{}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

func (u *UsageTracker) TrackUsage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		metrics.RecordRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}
