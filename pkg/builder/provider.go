package builder

import (
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
)

// OpenAIBuilder configures the OpenAI adapter used for audio, vision and,
// by default, text.
type OpenAIBuilder struct {
	apiKey             string
	baseURL            string
	chatModel          string
	visionModel        string
	transcriptionModel string
	speechModel        string
	voice              string
}

func NewOpenAIBuilder(apiKey string) *OpenAIBuilder {
	return &OpenAIBuilder{apiKey: apiKey}
}

func (ob *OpenAIBuilder) WithBaseURL(url string) *OpenAIBuilder {
	ob.baseURL = url
	return ob
}

func (ob *OpenAIBuilder) WithChatModel(model string) *OpenAIBuilder {
	ob.chatModel = model
	return ob
}

func (ob *OpenAIBuilder) WithVisionModel(model string) *OpenAIBuilder {
	ob.visionModel = model
	return ob
}

func (ob *OpenAIBuilder) WithTranscriptionModel(model string) *OpenAIBuilder {
	ob.transcriptionModel = model
	return ob
}

func (ob *OpenAIBuilder) WithSpeech(model, voice string) *OpenAIBuilder {
	ob.speechModel = model
	ob.voice = voice
	return ob
}

func (b *Builder) WithOpenAI(ob *OpenAIBuilder) *Builder {
	b.cfg.OpenAIAPIKey = ob.apiKey
	setIfNotEmpty(&b.cfg.OpenAIBaseURL, ob.baseURL)
	setIfNotEmpty(&b.cfg.OpenAIModel, ob.chatModel)
	setIfNotEmpty(&b.cfg.OpenAIVisionModel, ob.visionModel)
	setIfNotEmpty(&b.cfg.OpenAIAudioModel, ob.transcriptionModel)
	setIfNotEmpty(&b.cfg.OpenAITTSModel, ob.speechModel)
	setIfNotEmpty(&b.cfg.OpenAITTSVoice, ob.voice)
	return b
}

// WithAnthropicText routes text analysis to Anthropic.
func (b *Builder) WithAnthropicText(apiKey, model string) *Builder {
	b.cfg.TextProvider = config.ProviderAnthropic
	b.cfg.AnthropicAPIKey = apiKey
	setIfNotEmpty(&b.cfg.AnthropicModel, model)
	return b
}

// WithGeminiText routes text analysis to Gemini.
func (b *Builder) WithGeminiText(apiKey, model string) *Builder {
	b.cfg.TextProvider = config.ProviderGemini
	b.cfg.GeminiAPIKey = apiKey
	setIfNotEmpty(&b.cfg.GeminiModel, model)
	return b
}

// WithGenerationDefaults sets the temperature and token limit used when a
// request leaves them out.
func (b *Builder) WithGenerationDefaults(temperature float64, maxTokens int) *Builder {
	b.cfg.Temperature = temperature
	b.cfg.MaxTokens = maxTokens
	return b
}

// WithTextCompleter replaces the configured text provider.
func (b *Builder) WithTextCompleter(completer ai.TextCompleter) *Builder {
	b.deps.TextCompleter = completer
	return b
}

// WithAudioProviders replaces the transcription and speech providers.
func (b *Builder) WithAudioProviders(transcriber ai.Transcriber, synthesizer ai.Synthesizer) *Builder {
	b.deps.Transcriber = transcriber
	b.deps.Synthesizer = synthesizer
	return b
}

// WithImageDescriber replaces the vision provider.
func (b *Builder) WithImageDescriber(describer ai.ImageDescriber) *Builder {
	b.deps.ImageDescriber = describer
	return b
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
