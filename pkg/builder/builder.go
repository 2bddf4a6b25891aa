// Package builder assembles Settings and server options fluently, for
// embedding the service or for tests that should not depend on the process
// environment.
package builder

import (
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	appmodels "github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/pkg/models"

	"github.com/gofiber/fiber/v2"
)

type Builder struct {
	cfg             *config.Settings
	deps            dependencies.Options
	middlewares     []fiber.Handler
	rateLimitConfig *models.RateLimitConfig
	timeoutConfig   *models.TimeoutConfig
}

// New starts from the built-in defaults, ignoring the process environment.
func New() *Builder {
	return &Builder{
		cfg:         config.Defaults(),
		middlewares: []fiber.Handler{},
	}
}

// FromEnv starts from settings loaded the way the server binary loads them:
// env files first, then the environment and optional CONFIG_FILE overlay.
func FromEnv(envFiles []string) (*Builder, error) {
	if len(envFiles) > 0 {
		config.LoadEnvFiles(envFiles)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return &Builder{
		cfg:         cfg,
		middlewares: []fiber.Handler{},
	}, nil
}

// Build validates and returns the settings.
func (b *Builder) Build() (*config.Settings, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, appmodels.NewConfigurationError("invalid configuration", err)
	}
	return b.cfg, nil
}

func (b *Builder) GetDependencyOptions() dependencies.Options {
	return b.deps
}

func (b *Builder) GetMiddlewares() []fiber.Handler {
	return b.middlewares
}

func (b *Builder) GetRateLimitConfig() *models.RateLimitConfig {
	return b.rateLimitConfig
}

func (b *Builder) GetTimeoutConfig() *models.TimeoutConfig {
	return b.timeoutConfig
}
