package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Store is the cache surface used by the capability services.
// *Manager satisfies it.
type Store interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

var _ Store = (*Manager)(nil)

// Lookup returns the cached value for key. Cache failures are logged and
// reported as a miss so that callers always fall through to the provider.
func Lookup[T any](ctx context.Context, store Store, component, key string) (*T, bool) {
	if store == nil || !store.Enabled() {
		return nil, false
	}

	requestID := utils.RequestIDFromContext(ctx)

	var value T
	found, err := store.Get(ctx, key, &value)
	if err != nil {
		fiberlog.Warnf("[%s] %s: Cache lookup failed, treating as miss: %v", requestID, component, err)
		return nil, false
	}
	if !found {
		fiberlog.Debugf("[%s] %s: Cache miss for %s", requestID, component, key)
		return nil, false
	}

	fiberlog.Infof("[%s] %s: Cache hit for %s", requestID, component, key)
	return &value, true
}

// Save stores value under key. It is best-effort: a failure is logged and
// otherwise ignored, costing only a future miss.
func Save(ctx context.Context, store Store, component, key string, value any, ttl time.Duration) {
	if store == nil || !store.Enabled() {
		return
	}
	if err := store.Set(ctx, key, value, ttl); err != nil {
		fiberlog.Warnf("[%s] %s: Failed to store result in cache: %v", utils.RequestIDFromContext(ctx), component, err)
	}
}

func unmarshal(body []byte, dest any) error {
	return json.Unmarshal(body, dest)
}
