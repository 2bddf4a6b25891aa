// Package dependencies provides the process-wide service instances used by
// the HTTP handlers. A Container is built once at startup and passed to the
// handlers explicitly.
package dependencies

import (
	"context"
	"errors"
	"sync"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/audio"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/pipeline"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/text"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/vision"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	keyCacheManager   = "cache_manager"
	keySemanticTier   = "semantic_tier"
	keyOpenAI         = "openai_provider"
	keyTextCompleter  = "text_completer"
	keyTextAnalyzer   = "text_analyzer"
	keyAudioProcessor = "audio_processor"
	keyVisionAnalyzer = "vision_analyzer"
	keyPipeline       = "multimodal_pipeline"
)

// Options overrides collaborators, mainly for tests. Nil fields are built
// from settings.
type Options struct {
	TextCompleter  ai.TextCompleter
	Transcriber    ai.Transcriber
	Synthesizer    ai.Synthesizer
	ImageDescriber ai.ImageDescriber
	Cache          *cache.Manager
}

// Container lazily builds and then reuses one instance of each service.
// Accessors are safe for concurrent use; concurrent first calls build once.
type Container struct {
	settings *config.Settings
	opts     Options
	registry *registry

	closeOnce sync.Once
	closeErr  error
}

// NewContainer creates a container. Nothing is built until first use.
func NewContainer(settings *config.Settings, opts Options) *Container {
	return &Container{
		settings: settings,
		opts:     opts,
		registry: newRegistry(),
	}
}

// Settings returns the settings the container was built with.
func (c *Container) Settings() *config.Settings {
	return c.settings
}

// CacheManager returns the shared cache manager, connecting it on first
// use within ctx's deadline. A connect failure is logged and the
// disconnected manager is still returned; it keeps retrying in the
// background of later cache calls while the services run without a cache.
func (c *Container) CacheManager(ctx context.Context) (*cache.Manager, error) {
	return resolve(c.registry, keyCacheManager, func() (*cache.Manager, error) {
		manager := c.opts.Cache
		if manager == nil {
			manager = cache.NewManager(cache.Options{
				URL:               c.settings.RedisURL,
				Enabled:           c.settings.RedisEnabled,
				DefaultTTL:        c.settings.CacheTTLDuration(),
				CompressThreshold: c.settings.CacheCompressThreshold,
			})
		}

		if err := manager.Connect(ctx); err != nil {
			fiberlog.Errorf("Container: Cache manager failed to connect, continuing without cache: %v", err)
		}
		return manager, nil
	})
}

// TextAnalyzer returns the shared text analyzer.
func (c *Container) TextAnalyzer(ctx context.Context) (*text.Analyzer, error) {
	return resolve(c.registry, keyTextAnalyzer, func() (*text.Analyzer, error) {
		store, err := c.CacheManager(ctx)
		if err != nil {
			return nil, err
		}
		completer, err := c.textCompleter(ctx)
		if err != nil {
			return nil, err
		}

		var semantic text.SemanticCache
		if tier := c.semanticTier(); tier != nil {
			semantic = tier
		}

		return text.NewAnalyzer(completer, store, semantic, text.Options{
			DefaultTemperature: c.settings.Temperature,
			DefaultMaxTokens:   c.settings.MaxTokens,
			CacheTTL:           c.settings.CacheTTLDuration(),
		}), nil
	})
}

// AudioProcessor returns the shared audio processor.
func (c *Container) AudioProcessor(ctx context.Context) (*audio.Processor, error) {
	return resolve(c.registry, keyAudioProcessor, func() (*audio.Processor, error) {
		store, err := c.CacheManager(ctx)
		if err != nil {
			return nil, err
		}

		transcriber := c.opts.Transcriber
		if transcriber == nil {
			transcriber = c.openAI()
		}
		synthesizer := c.opts.Synthesizer
		if synthesizer == nil {
			synthesizer = c.openAI()
		}

		return audio.NewProcessor(transcriber, synthesizer, store, c.settings.CacheTTLDuration()), nil
	})
}

// VisionAnalyzer returns the shared vision analyzer.
func (c *Container) VisionAnalyzer(ctx context.Context) (*vision.Analyzer, error) {
	return resolve(c.registry, keyVisionAnalyzer, func() (*vision.Analyzer, error) {
		store, err := c.CacheManager(ctx)
		if err != nil {
			return nil, err
		}

		describer := c.opts.ImageDescriber
		if describer == nil {
			describer = c.openAI()
		}

		return vision.NewAnalyzer(describer, store, c.settings.CacheTTLDuration(), c.settings.MaxTokens), nil
	})
}

// MultimodalPipeline returns the shared pipeline over the three analyzers.
func (c *Container) MultimodalPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	return resolve(c.registry, keyPipeline, func() (*pipeline.Pipeline, error) {
		textAnalyzer, err := c.TextAnalyzer(ctx)
		if err != nil {
			return nil, err
		}
		audioProcessor, err := c.AudioProcessor(ctx)
		if err != nil {
			return nil, err
		}
		visionAnalyzer, err := c.VisionAnalyzer(ctx)
		if err != nil {
			return nil, err
		}

		return pipeline.New(textAnalyzer, audioProcessor, visionAnalyzer, c.settings.PipelineConcurrency), nil
	})
}

// Close disconnects the cache manager and releases the semantic tier if
// they were built. It is safe to call more than once.
func (c *Container) Close() error {
	c.closeOnce.Do(func() {
		var errs []error

		if v, ok := c.registry.loaded(keySemanticTier); ok {
			if tier, ok := v.(*cache.SemanticTier); ok && tier != nil {
				errs = append(errs, tier.Close())
			}
		}
		if v, ok := c.registry.loaded(keyCacheManager); ok {
			errs = append(errs, v.(*cache.Manager).Disconnect())
		}

		c.registry.clear()
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func (c *Container) openAI() ai.MultimodalProvider {
	provider, _ := resolve(c.registry, keyOpenAI, func() (ai.MultimodalProvider, error) {
		provider := ai.NewOpenAIProviderFromSettings(c.settings)
		if c.settings.CircuitBreakerEnabled {
			return ai.GuardOpenAI(provider, ai.BreakerConfig(c.settings)), nil
		}
		return provider, nil
	})
	return provider
}

func (c *Container) textCompleter(ctx context.Context) (ai.TextCompleter, error) {
	if c.opts.TextCompleter != nil {
		return c.opts.TextCompleter, nil
	}
	return resolve(c.registry, keyTextCompleter, func() (ai.TextCompleter, error) {
		var openaiCompleter ai.TextCompleter
		if c.settings.TextProvider == config.ProviderOpenAI {
			openaiCompleter = c.openAI()
		}
		return ai.NewTextCompleter(ctx, c.settings, openaiCompleter)
	})
}

// semanticTier returns the semantic cache when enabled, or nil. A build
// failure disables the tier for the life of the process.
func (c *Container) semanticTier() *cache.SemanticTier {
	if !c.settings.SemanticCacheEnabled || !c.settings.RedisEnabled || c.opts.Cache != nil {
		return nil
	}

	tier, _ := resolve(c.registry, keySemanticTier, func() (*cache.SemanticTier, error) {
		tier, err := cache.NewSemanticTier(cache.SemanticOptions{
			OpenAIAPIKey:   c.settings.OpenAIAPIKey,
			EmbeddingModel: c.settings.EmbeddingModel,
			RedisURL:       c.settings.RedisURL,
			Threshold:      c.settings.SemanticThreshold,
		})
		if err != nil {
			fiberlog.Warnf("Container: Semantic cache disabled: %v", err)
			return nil, nil
		}
		return tier, nil
	})
	return tier
}
