// Package config wires settings, services and HTTP routes into a runnable
// server.
package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/api"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/auth"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/middleware"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/request"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/response"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/pkg/builder"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxRequestTimeout = 5 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// Server represents a multimodal analytics server instance.
type Server struct {
	settings  *config.Settings
	container *dependencies.Container
	app       *fiber.App
	builder   *builder.Builder
}

// NewServer creates a server for already loaded settings.
// The settings parameter is required and must not be nil.
func NewServer(settings *config.Settings) *Server {
	if settings == nil {
		panic("settings cannot be nil - use config.Load() or the builder to create settings")
	}

	return &Server{
		settings:  settings,
		container: dependencies.NewContainer(settings, dependencies.Options{}),
	}
}

// NewServerWithBuilder creates a server from a builder, including its
// provider overrides and extra middleware.
func NewServerWithBuilder(b *builder.Builder) (*Server, error) {
	settings, err := b.Build()
	if err != nil {
		return nil, err
	}

	return &Server{
		settings:  settings,
		container: dependencies.NewContainer(settings, b.GetDependencyOptions()),
		builder:   b,
	}, nil
}

// App returns the Fiber app, building it on first call.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		s.app = newApp(s.settings, s.container, s.builder)
	}
	return s.app
}

// Run starts the server and blocks until an interrupt or a listener error,
// then shuts down gracefully and releases the cache connection.
func (s *Server) Run() error {
	setupLogLevel(s.settings)

	defer func() {
		if err := s.container.Close(); err != nil {
			fiberlog.Errorf("Failed to release dependencies: %v", err)
		}
	}()

	// Connect the cache up front so the first request does not pay for it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := s.container.CacheManager(ctx); err != nil {
		return fmt.Errorf("cache initialization failed: %w", err)
	}

	app := s.App()
	listenAddr := s.settings.ListenAddr()

	fmt.Printf("Multimodal analytics service starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.settings.Environment)
	fmt.Printf("   Text provider: %s (%s)\n", s.settings.TextProvider, s.settings.TextModel())
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		fiberlog.Info("Context cancelled, starting shutdown...")
	}

	fiberlog.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	fiberlog.Info("Server shutdown completed successfully")

	return nil
}

// NewApp builds the Fiber app with the full middleware chain and routes.
func NewApp(settings *config.Settings, container *dependencies.Container) *fiber.App {
	return newApp(settings, container, nil)
}

func newApp(settings *config.Settings, container *dependencies.Container, b *builder.Builder) *fiber.App {
	app := createFiberApp(settings)
	setupMiddleware(app, settings, b)
	setupRoutes(app, settings, container)
	app.Get("/", welcomeHandler())
	return app
}

func createFiberApp(settings *config.Settings) *fiber.App {
	isProd := settings.IsProduction()

	// Multipart bodies carry every upload plus form overhead
	bodyLimit := settings.MaxUploadBytes*max(settings.MaxVisionFiles, 1) + 1<<20

	return fiber.New(fiber.Config{
		AppName:               "Multimodal Analytics v" + config.Version,
		DisableStartupMessage: isProd,
		ReadTimeout:           2 * time.Minute,
		WriteTimeout:          2 * time.Minute,
		IdleTimeout:           5 * time.Minute,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
		BodyLimit:             bodyLimit,
		Prefork:               false,
		CaseSensitive:         true,
		StrictRouting:         false,
		Network:               "tcp",
		ServerHeader:          "MultimodalAnalytics",
	})
}

func setupMiddleware(app *fiber.App, settings *config.Settings, b *builder.Builder) {
	isProd := settings.IsProduction()
	reqSvc := request.NewBaseService(int64(settings.MaxUploadBytes))

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	// Request ID, echoed back and carried in the user context for service logs
	app.Use(func(c *fiber.Ctx) error {
		requestID := reqSvc.GetRequestID(c)
		c.Set(request.RequestIDHeader, requestID)
		c.SetUserContext(utils.WithRequestID(c.UserContext(), requestID))
		return c.Next()
	})

	// Rate limiter (builder config wins over settings)
	rlMax, rlWindow := settings.RateLimitMax, settings.RateLimitWindow
	var keyFunc func(*fiber.Ctx) string
	if b != nil && b.GetRateLimitConfig() != nil {
		rlCfg := b.GetRateLimitConfig()
		rlMax, rlWindow, keyFunc = rlCfg.Max, rlCfg.Expiration, rlCfg.KeyFunc
	}
	if keyFunc == nil {
		keyFunc = func(c *fiber.Ctx) string {
			if apiKey := c.Get("X-API-Key"); apiKey != "" {
				return apiKey
			}
			return c.IP()
		}
	}
	if rlMax > 0 {
		respSvc := response.NewBaseService()
		app.Use(limiter.New(limiter.Config{
			Max:               rlMax,
			Expiration:        rlWindow,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      keyFunc,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == "/metrics"
			},
			LimitReached: func(c *fiber.Ctx) error {
				limitErr := models.NewRateLimitError(fmt.Sprintf("%d requests per %v", rlMax, rlWindow))
				return respSvc.HandleError(c, limitErr, utils.RequestIDFromContext(c.UserContext()))
			},
		}))
	}

	// Request timeout, carried through the user context to cache and provider calls
	requestTimeout := settings.RequestTimeout
	if b != nil && b.GetTimeoutConfig() != nil {
		requestTimeout = b.GetTimeoutConfig().Timeout
	}
	app.Use(func(c *fiber.Ctx) error {
		timeout := requestTimeout
		if customTimeout := c.Get("X-Request-Timeout"); customTimeout != "" {
			if d, err := time.ParseDuration(customTimeout); err == nil && d > 0 {
				timeout = min(d, maxRequestTimeout)
			}
		}
		if timeout <= 0 {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	})

	// Compression
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Logging
	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b ${respHeader:X-Request-ID}\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${respHeader:X-Request-ID} ${error}\n",
			Output: os.Stdout,
		}))
	}

	// CORS
	allowedHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "User-Agent",
		"X-API-Key", "X-Request-ID", "X-Request-Timeout",
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     settings.AllowedOrigins,
		AllowHeaders:     strings.Join(allowedHeaders, ", "),
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		AllowCredentials: settings.AllowedOrigins != "*",
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, X-Cache-Hit",
	}))

	app.Use(middleware.NewUsageTracker().TrackUsage())

	// Custom middlewares from builder
	if b != nil {
		for _, m := range b.GetMiddlewares() {
			app.Use(m)
		}
	}
}

func setupLogLevel(settings *config.Settings) {
	logLevel := settings.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal", "critical":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	case "panic":
		fiberlog.SetLevel(fiberlog.LevelPanic)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func setupRoutes(app *fiber.App, settings *config.Settings, container *dependencies.Container) {
	reqSvc := request.NewBaseService(int64(settings.MaxUploadBytes))
	respSvc := response.NewBaseService()
	issuer := auth.NewTokenIssuer(settings.JWTSecretKey, settings.APISecretKey, settings.JWTExpiry)

	healthHandler := api.NewHealthHandler(container)
	textHandler := api.NewTextHandler(container, reqSvc, respSvc)
	audioHandler := api.NewAudioHandler(container, reqSvc, respSvc)
	visionHandler := api.NewVisionHandler(container, reqSvc, respSvc, settings.MaxVisionFiles)
	pipelineHandler := api.NewPipelineHandler(container, reqSvc, respSvc)
	authHandler := api.NewAuthHandler(issuer, reqSvc, respSvc)
	cacheHandler := api.NewCacheHandler(container, reqSvc, respSvc)

	// Health and metrics are always public
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1Group := app.Group("/api/v1")
	v1Group.Post("/auth/token", authHandler.Token)

	authMiddleware := middleware.NewAuthMiddleware(issuer, &middleware.AuthMiddlewareConfig{
		Enabled:      settings.AuthEnabled,
		APIKeyHeader: "X-API-Key",
		HeaderNames:  []string{"Authorization"},
		SkipPaths:    []string{"/", "/health", "/metrics", "/api/v1/auth/token"},
	})
	v1Group.Use(authMiddleware.Authenticate())

	v1Group.Post("/text/analyze", textHandler.Analyze)
	v1Group.Post("/audio/transcribe", audioHandler.Transcribe)
	v1Group.Post("/audio/synthesize", audioHandler.Synthesize)
	v1Group.Post("/vision/analyze", visionHandler.Analyze)
	v1Group.Post("/multimodal/pipeline", pipelineHandler.Run)
	v1Group.Delete("/cache/:key", cacheHandler.Delete)
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to the Multimodal Analytics API!",
			"version":    config.Version,
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"health":           "/health",
				"metrics":          "/metrics",
				"token":            "/api/v1/auth/token",
				"text_analyze":     "/api/v1/text/analyze",
				"audio_transcribe": "/api/v1/audio/transcribe",
				"audio_synthesize": "/api/v1/audio/synthesize",
				"vision_analyze":   "/api/v1/vision/analyze",
				"pipeline":         "/api/v1/multimodal/pipeline",
				"cache_eviction":   "/api/v1/cache/:key",
			},
		})
	}
}
