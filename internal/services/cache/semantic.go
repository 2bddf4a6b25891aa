package cache

import (
	"context"
	"fmt"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	"github.com/botirk38/semanticcache"
	"github.com/botirk38/semanticcache/options"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	defaultSemanticThreshold = 0.95
	defaultEmbeddingModel    = "text-embedding-3-small"
)

// SemanticOptions configures the similarity tier for text analysis results.
type SemanticOptions struct {
	OpenAIAPIKey   string
	EmbeddingModel string
	RedisURL       string
	Threshold      float32
}

// SemanticTier answers text analysis requests whose prompt is close enough
// to one already answered. Entries are embedded with OpenAI and stored in Redis.
type SemanticTier struct {
	cache     *semanticcache.SemanticCache[string, models.TextAnalysisResult]
	threshold float32
}

// NewSemanticTier creates the semantic cache tier.
func NewSemanticTier(opts SemanticOptions) (*SemanticTier, error) {
	fiberlog.Info("SemanticTier: Initializing semantic cache")

	if opts.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("semantic cache requires an OpenAI API key")
	}
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL not set for semantic cache backend")
	}

	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 {
		fiberlog.Warnf("SemanticTier: Invalid threshold value %.2f, using default %.2f", opts.Threshold, defaultSemanticThreshold)
		threshold = defaultSemanticThreshold
	}

	embedModel := opts.EmbeddingModel
	if embedModel == "" {
		embedModel = defaultEmbeddingModel
	}

	fiberlog.Debugf("SemanticTier: Using Redis backend, model=%s, threshold=%.2f", embedModel, threshold)
	sc, err := semanticcache.New(
		options.WithOpenAIProvider[string, models.TextAnalysisResult](opts.OpenAIAPIKey, embedModel),
		options.WithRedisBackend[string, models.TextAnalysisResult](opts.RedisURL, 0),
	)
	if err != nil {
		fiberlog.Errorf("SemanticTier: Failed to create semantic cache: %v", err)
		return nil, fmt.Errorf("failed to create semantic cache: %w", err)
	}

	fiberlog.Info("SemanticTier: Semantic cache initialized successfully")
	return &SemanticTier{cache: sc, threshold: threshold}, nil
}

// Lookup tries an exact match on key, then a similarity search on text.
// Errors are logged and reported as a miss.
func (s *SemanticTier) Lookup(ctx context.Context, key, text string) (*models.TextAnalysisResult, bool) {
	requestID := utils.RequestIDFromContext(ctx)

	if hit, found, err := s.cache.Get(ctx, key); err != nil {
		fiberlog.Errorf("[%s] SemanticTier: Error during exact lookup: %v", requestID, err)
	} else if found {
		fiberlog.Infof("[%s] SemanticTier: Exact cache hit", requestID)
		return &hit, true
	}

	match, err := s.cache.Lookup(ctx, text, s.threshold)
	if err != nil {
		fiberlog.Errorf("[%s] SemanticTier: Error during semantic lookup: %v", requestID, err)
		return nil, false
	}
	if match == nil {
		fiberlog.Debugf("[%s] SemanticTier: Semantic cache miss", requestID)
		return nil, false
	}

	fiberlog.Infof("[%s] SemanticTier: Semantic cache hit (threshold %.2f)", requestID, s.threshold)
	return &match.Value, true
}

// Store records result under key, embedding text for later similarity lookups.
func (s *SemanticTier) Store(ctx context.Context, key, text string, result models.TextAnalysisResult) error {
	if err := s.cache.Set(ctx, key, text, result); err != nil {
		return fmt.Errorf("failed to store in semantic cache: %w", err)
	}
	return nil
}

// Close releases the semantic cache backend.
func (s *SemanticTier) Close() error {
	return s.cache.Close()
}
