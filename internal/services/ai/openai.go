package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
)

const defaultSpeechFormat = "mp3"

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	VisionModel        string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	Timeout            time.Duration
}

// OpenAIProvider serves every modality through the OpenAI API.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *openai.Client
}

var (
	_ TextCompleter  = (*OpenAIProvider)(nil)
	_ Transcriber    = (*OpenAIProvider)(nil)
	_ Synthesizer    = (*OpenAIProvider)(nil)
	_ ImageDescriber = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider creates the adapter. Without an API key no client is
// built and every call fails with a provider error.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	p := &OpenAIProvider{cfg: cfg}
	if cfg.APIKey != "" {
		p.client = buildOpenAIClient(cfg)
	} else {
		fiberlog.Warn("OpenAIProvider: OPENAI_API_KEY not set, provider calls will fail")
	}
	return p
}

func buildOpenAIClient(cfg OpenAIConfig) *openai.Client {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(cfg.APIKey),
		// Retries belong to the caller
		openaiOption.WithMaxRetries(0),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(cfg.BaseURL))
	}

	if cfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		opts = append(opts, openaiOption.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(opts...)
	return &client
}

func (p *OpenAIProvider) Name() string               { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string              { return p.cfg.ChatModel }
func (p *OpenAIProvider) VisionModel() string        { return p.cfg.VisionModel }
func (p *OpenAIProvider) TranscriptionModel() string { return p.cfg.TranscriptionModel }
func (p *OpenAIProvider) SpeechModel() string        { return p.cfg.SpeechModel }
func (p *OpenAIProvider) DefaultVoice() string       { return p.cfg.Voice }

// Complete sends a chat completion with an optional system message.
func (p *OpenAIProvider) Complete(ctx context.Context, params CompletionParams) (*Completion, error) {
	if p.client == nil {
		return nil, missingKey(ProviderOpenAI)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if params.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(params.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(params.Prompt))

	return p.chat(ctx, "chat", p.cfg.ChatModel, messages, params.Temperature, params.MaxTokens)
}

// DescribeImages sends the prompt and images as one multimodal user message.
// Images are inlined as base64 data URLs.
func (p *OpenAIProvider) DescribeImages(ctx context.Context, params VisionParams) (*Completion, error) {
	if p.client == nil {
		return nil, missingKey(ProviderOpenAI)
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(params.Images)+1)
	parts = append(parts, openai.TextContentPart(params.Prompt))
	for _, img := range params.Images {
		imageURL := openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
		}
		switch params.Detail {
		case "low":
			imageURL.Detail = "low"
		case "high":
			imageURL.Detail = "high"
		case "auto":
			imageURL.Detail = "auto"
		}
		parts = append(parts, openai.ImageContentPart(imageURL))
	}

	messages := []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)}
	return p.chat(ctx, "vision", p.cfg.VisionModel, messages, -1, params.MaxTokens)
}

// chat runs a chat completion. A negative temperature leaves it unset.
func (p *OpenAIProvider) chat(
	ctx context.Context,
	operation string,
	model string,
	messages []openai.ChatCompletionMessageParamUnion,
	temperature float64,
	maxTokens int,
) (*Completion, error) {
	requestID := utils.RequestIDFromContext(ctx)

	req := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if temperature >= 0 {
		req.Temperature = openai.Float(temperature)
	}
	if maxTokens > 0 {
		req.MaxTokens = openai.Int(int64(maxTokens))
	}

	fiberlog.Infof("[%s] OpenAIProvider: Making %s request - model: %s", requestID, operation, model)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	observe(ProviderOpenAI, operation, start, err)
	if err != nil {
		fiberlog.Errorf("[%s] OpenAIProvider: %s request failed after %v: %v", requestID, operation, time.Since(start), err)
		return nil, wrapError(ProviderOpenAI, operation, err)
	}
	if len(resp.Choices) == 0 {
		return nil, wrapError(ProviderOpenAI, operation, fmt.Errorf("response contained no choices"))
	}

	fiberlog.Infof("[%s] OpenAIProvider: %s request completed in %v", requestID, operation, time.Since(start))

	choice := resp.Choices[0]
	return &Completion{
		Content:      choice.Message.Content,
		Model:        firstNonEmpty(resp.Model, model),
		Provider:     ProviderOpenAI,
		FinishReason: string(choice.FinishReason),
		Usage: modelsUsage(
			resp.Usage.PromptTokens,
			resp.Usage.CompletionTokens,
			resp.Usage.TotalTokens,
		),
	}, nil
}

// Transcribe uploads the audio to the transcription endpoint.
func (p *OpenAIProvider) Transcribe(ctx context.Context, params TranscriptionParams) (*Transcription, error) {
	if p.client == nil {
		return nil, missingKey(ProviderOpenAI)
	}
	requestID := utils.RequestIDFromContext(ctx)

	filename := params.Filename
	if filename == "" {
		filename = "audio.mp3"
	}
	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(params.Audio), filename, contentType),
		Model: openai.AudioModel(p.cfg.TranscriptionModel),
	}
	if params.Language != "" {
		req.Language = openai.String(params.Language)
	}
	if params.Prompt != "" {
		req.Prompt = openai.String(params.Prompt)
	}

	fiberlog.Infof("[%s] OpenAIProvider: Making transcription request - model: %s, bytes: %d", requestID, p.cfg.TranscriptionModel, len(params.Audio))

	start := time.Now()
	resp, err := p.client.Audio.Transcriptions.New(ctx, req)
	observe(ProviderOpenAI, "transcribe", start, err)
	if err != nil {
		fiberlog.Errorf("[%s] OpenAIProvider: transcription failed after %v: %v", requestID, time.Since(start), err)
		return nil, wrapError(ProviderOpenAI, "transcription", err)
	}

	return &Transcription{
		Text:     resp.Text,
		Model:    p.cfg.TranscriptionModel,
		Language: params.Language,
	}, nil
}

// Synthesize renders text to audio and reads the whole response body.
func (p *OpenAIProvider) Synthesize(ctx context.Context, params SpeechParams) (*Speech, error) {
	if p.client == nil {
		return nil, missingKey(ProviderOpenAI)
	}
	requestID := utils.RequestIDFromContext(ctx)

	voice := firstNonEmpty(params.Voice, p.cfg.Voice)
	format := firstNonEmpty(params.Format, defaultSpeechFormat)

	req := openai.AudioSpeechNewParams{
		Input:          params.Text,
		Model:          openai.SpeechModel(p.cfg.SpeechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
	}
	if params.Speed > 0 {
		req.Speed = openai.Float(params.Speed)
	}

	fiberlog.Infof("[%s] OpenAIProvider: Making speech request - model: %s, voice: %s, format: %s", requestID, p.cfg.SpeechModel, voice, format)

	start := time.Now()
	resp, err := p.client.Audio.Speech.New(ctx, req)
	if err != nil {
		observe(ProviderOpenAI, "synthesize", start, err)
		fiberlog.Errorf("[%s] OpenAIProvider: speech request failed after %v: %v", requestID, time.Since(start), err)
		return nil, wrapError(ProviderOpenAI, "speech synthesis", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			fiberlog.Warnf("[%s] OpenAIProvider: failed to close speech response body: %v", requestID, closeErr)
		}
	}()

	audio, err := io.ReadAll(resp.Body)
	observe(ProviderOpenAI, "synthesize", start, err)
	if err != nil {
		return nil, wrapError(ProviderOpenAI, "speech synthesis", fmt.Errorf("failed to read audio: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = speechContentType(format)
	}

	return &Speech{
		Audio:       audio,
		Format:      format,
		ContentType: contentType,
		Model:       p.cfg.SpeechModel,
		Voice:       voice,
	}, nil
}

// speechContentType maps a speech response format to its MIME type.
func speechContentType(format string) string {
	switch format {
	case "opus":
		return "audio/opus"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}
