package ai

import (
	"context"
	"fmt"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/circuitbreaker"
)

// NewOpenAIProviderFromSettings builds the OpenAI adapter from settings.
func NewOpenAIProviderFromSettings(settings *config.Settings) *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:             settings.OpenAIAPIKey,
		BaseURL:            settings.OpenAIBaseURL,
		ChatModel:          settings.OpenAIModel,
		VisionModel:        settings.OpenAIVisionModel,
		TranscriptionModel: settings.OpenAIAudioModel,
		SpeechModel:        settings.OpenAITTSModel,
		Voice:              settings.OpenAITTSVoice,
		Timeout:            settings.RequestTimeout,
	})
}

// BreakerConfig returns the circuit breaker settings shared by all providers.
func BreakerConfig(settings *config.Settings) circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold: settings.CircuitBreakerFailures,
		SuccessThreshold: 1,
		Timeout:          settings.CircuitBreakerTimeout,
	}
}

// NewTextCompleter returns the completer selected by TEXT_PROVIDER. When
// OpenAI is selected the given OpenAI completer is reused so both share one
// client and breaker. Non-OpenAI completers are guarded here.
func NewTextCompleter(ctx context.Context, settings *config.Settings, openaiCompleter TextCompleter) (TextCompleter, error) {
	var completer TextCompleter

	switch settings.TextProvider {
	case config.ProviderOpenAI, "":
		if openaiCompleter != nil {
			return openaiCompleter, nil
		}
		completer = NewOpenAIProviderFromSettings(settings)
	case config.ProviderAnthropic:
		completer = NewAnthropicCompleter(AnthropicConfig{
			APIKey: settings.AnthropicAPIKey,
			Model:  settings.AnthropicModel,
		})
	case config.ProviderGemini:
		gemini, err := NewGeminiCompleter(ctx, GeminiConfig{
			APIKey: settings.GeminiAPIKey,
			Model:  settings.GeminiModel,
		})
		if err != nil {
			return nil, err
		}
		completer = gemini
	default:
		return nil, fmt.Errorf("unsupported text provider: %s", settings.TextProvider)
	}

	if settings.CircuitBreakerEnabled {
		completer = GuardCompleter(completer, BreakerConfig(settings))
	}
	return completer, nil
}
