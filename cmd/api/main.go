package main

import (
	"log"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	pkgconfig "github.com/serhatsoysal/ai-driven-multimodal-analytics/pkg/config"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Environment first, then the optional CONFIG_FILE overlay
	settings, err := config.Load()
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	if !settings.OpenAIConfigured() {
		fiberlog.Warn("OPENAI_API_KEY is not set; provider calls will fail until it is configured")
	}
	fiberlog.Debugf("Settings: %+v", settings.Redacted())

	server := pkgconfig.NewServer(settings)

	log.Println("Starting multimodal analytics server...")
	if err := server.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
