package vision

import (
	"context"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const component = "VisionAnalyzer"

// Analyzer answers prompts about one or more images.
type Analyzer struct {
	describer ai.ImageDescriber
	store     cache.Store
	ttl       time.Duration
	maxTokens int
}

// NewAnalyzer creates a vision analyzer. store may be nil.
func NewAnalyzer(describer ai.ImageDescriber, store cache.Store, ttl time.Duration, defaultMaxTokens int) *Analyzer {
	return &Analyzer{
		describer: describer,
		store:     store,
		ttl:       ttl,
		maxTokens: defaultMaxTokens,
	}
}

// Analyze validates req and describes its images, caching by the prompt,
// parameters and the ordered content hashes of the images.
func (a *Analyzer) Analyze(ctx context.Context, req models.VisionAnalysisRequest) (*models.VisionAnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requestID := utils.RequestIDFromContext(ctx)

	maxTokens := a.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	images := make([]ai.Image, 0, len(req.Images))
	hashes := make([]any, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, ai.Image{Data: img.Data, MimeType: img.MimeType})
		hashes = append(hashes, cache.HashBytes(img.Data))
	}

	var key string
	if req.UseCache {
		var err error
		key, err = cache.Fingerprint("vision", map[string]any{
			"model":      a.describer.VisionModel(),
			"prompt":     req.Prompt,
			"detail":     req.Detail,
			"max_tokens": maxTokens,
			"images":     hashes,
		})
		if err != nil {
			fiberlog.Warnf("[%s] %s: Failed to fingerprint request, skipping cache: %v", requestID, component, err)
		}
	}

	if key != "" {
		if hit, ok := cache.Lookup[models.VisionAnalysisResult](ctx, a.store, component, key); ok {
			hit.Cached = true
			return hit, nil
		}
	}

	fiberlog.Debugf("[%s] %s: Describing %d image(s)", requestID, component, len(images))

	completion, err := a.describer.DescribeImages(ctx, ai.VisionParams{
		Prompt:    req.Prompt,
		Images:    images,
		Detail:    req.Detail,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, err
	}

	result := &models.VisionAnalysisResult{
		Content:    completion.Content,
		Model:      completion.Model,
		ImageCount: len(images),
		Usage:      &completion.Usage,
	}

	if key != "" {
		cache.Save(ctx, a.store, component, key, result, a.ttl)
	}
	return result, nil
}
