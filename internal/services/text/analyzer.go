package text

import (
	"context"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const component = "TextAnalyzer"

// SemanticCache is an optional similarity tier consulted after an exact miss.
type SemanticCache interface {
	Lookup(ctx context.Context, key, text string) (*models.TextAnalysisResult, bool)
	Store(ctx context.Context, key, text string, result models.TextAnalysisResult) error
}

// Options holds the generation defaults applied when a request omits them.
type Options struct {
	DefaultTemperature float64
	DefaultMaxTokens   int
	CacheTTL           time.Duration
}

// Analyzer answers text prompts, caching results by request fingerprint.
type Analyzer struct {
	completer ai.TextCompleter
	store     cache.Store
	semantic  SemanticCache
	opts      Options
}

// NewAnalyzer creates a text analyzer. store and semantic may be nil.
func NewAnalyzer(completer ai.TextCompleter, store cache.Store, semantic SemanticCache, opts Options) *Analyzer {
	return &Analyzer{
		completer: completer,
		store:     store,
		semantic:  semantic,
		opts:      opts,
	}
}

// Analyze validates req, serves it from cache when allowed, and otherwise
// calls the text provider and caches the result.
func (a *Analyzer) Analyze(ctx context.Context, req models.TextAnalysisRequest) (*models.TextAnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requestID := utils.RequestIDFromContext(ctx)

	params := ai.CompletionParams{
		Prompt:      req.Prompt,
		Temperature: a.opts.DefaultTemperature,
		MaxTokens:   a.opts.DefaultMaxTokens,
	}
	if req.SystemPrompt != nil {
		params.SystemPrompt = *req.SystemPrompt
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}

	var key string
	if req.UseCache {
		var err error
		key, err = a.fingerprint(params)
		if err != nil {
			fiberlog.Warnf("[%s] %s: Failed to fingerprint request, skipping cache: %v", requestID, component, err)
		}
	}

	if key != "" {
		if hit, ok := cache.Lookup[models.TextAnalysisResult](ctx, a.store, component, key); ok {
			hit.Cached = true
			return hit, nil
		}
		if a.semantic != nil {
			if hit, ok := a.semantic.Lookup(ctx, key, semanticText(params)); ok {
				hit.Cached = true
				return hit, nil
			}
		}
	}

	completion, err := a.completer.Complete(ctx, params)
	if err != nil {
		return nil, err
	}

	result := &models.TextAnalysisResult{
		Content:      completion.Content,
		Model:        completion.Model,
		Provider:     completion.Provider,
		FinishReason: completion.FinishReason,
		Usage:        &completion.Usage,
	}

	if key != "" {
		cache.Save(ctx, a.store, component, key, result, a.opts.CacheTTL)
		if a.semantic != nil {
			if err := a.semantic.Store(ctx, key, semanticText(params), *result); err != nil {
				fiberlog.Warnf("[%s] %s: %v", requestID, component, err)
			}
		}
	}

	return result, nil
}

func (a *Analyzer) fingerprint(params ai.CompletionParams) (string, error) {
	return cache.Fingerprint("text", map[string]any{
		"provider":      a.completer.Name(),
		"model":         a.completer.Model(),
		"prompt":        params.Prompt,
		"system_prompt": params.SystemPrompt,
		"temperature":   params.Temperature,
		"max_tokens":    params.MaxTokens,
	})
}

func semanticText(params ai.CompletionParams) string {
	if params.SystemPrompt == "" {
		return params.Prompt
	}
	return params.SystemPrompt + "\n\n" + params.Prompt
}
