package builder

import (
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"
)

// WithRedis enables the response cache backed by the Redis at url.
func (b *Builder) WithRedis(url string, ttl time.Duration) *Builder {
	b.cfg.RedisEnabled = true
	b.cfg.RedisURL = url
	if ttl > 0 {
		b.cfg.CacheTTL = int(ttl / time.Second)
	}
	return b
}

// WithoutCache disables the response cache; every request reaches the provider.
func (b *Builder) WithoutCache() *Builder {
	b.cfg.RedisEnabled = false
	b.cfg.SemanticCacheEnabled = false
	return b
}

// WithSemanticCache enables similarity lookups for text analysis.
func (b *Builder) WithSemanticCache(threshold float32, embeddingModel string) *Builder {
	b.cfg.SemanticCacheEnabled = true
	if threshold > 0 {
		b.cfg.SemanticThreshold = threshold
	}
	setIfNotEmpty(&b.cfg.EmbeddingModel, embeddingModel)
	return b
}

// WithCacheManager supplies a pre-built cache manager.
func (b *Builder) WithCacheManager(manager *cache.Manager) *Builder {
	b.deps.Cache = manager
	return b
}
