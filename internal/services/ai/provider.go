// Package ai adapts the upstream AI SDKs to the narrow interfaces used by the
// capability services. Every failure leaving this package is a provider AppError.
package ai

import (
	"context"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
)

// Provider names used in errors, metrics and cache fingerprints.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// CompletionParams is a single-turn text completion request.
type CompletionParams struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Completion is the text produced by a provider.
type Completion struct {
	Content      string
	Model        string
	Provider     string
	FinishReason string
	Usage        models.TokenUsage
}

// TranscriptionParams describes an audio file to transcribe.
type TranscriptionParams struct {
	Audio       []byte
	Filename    string
	ContentType string
	Language    string
	Prompt      string
}

// Transcription is the text recognized in an audio file.
type Transcription struct {
	Text     string
	Model    string
	Language string
}

// SpeechParams describes text to synthesize.
type SpeechParams struct {
	Text   string
	Voice  string
	Format string
	Speed  float64
}

// Speech is synthesized audio.
type Speech struct {
	Audio       []byte
	Format      string
	ContentType string
	Model       string
	Voice       string
}

// Image is one image passed to a vision model.
type Image struct {
	Data     []byte
	MimeType string
}

// VisionParams asks a model to describe one or more images.
type VisionParams struct {
	Prompt    string
	Images    []Image
	Detail    string
	MaxTokens int
}

// TextCompleter produces text completions.
type TextCompleter interface {
	Name() string
	Model() string
	Complete(ctx context.Context, params CompletionParams) (*Completion, error)
}

// Transcriber converts speech to text.
type Transcriber interface {
	TranscriptionModel() string
	Transcribe(ctx context.Context, params TranscriptionParams) (*Transcription, error)
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	SpeechModel() string
	DefaultVoice() string
	Synthesize(ctx context.Context, params SpeechParams) (*Speech, error)
}

// ImageDescriber answers prompts about images.
type ImageDescriber interface {
	VisionModel() string
	DescribeImages(ctx context.Context, params VisionParams) (*Completion, error)
}

func modelsUsage(prompt, completion, total int64) models.TokenUsage {
	if total == 0 {
		total = prompt + completion
	}
	return models.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

// MultimodalProvider serves every modality from one upstream.
type MultimodalProvider interface {
	TextCompleter
	Transcriber
	Synthesizer
	ImageDescriber
}
