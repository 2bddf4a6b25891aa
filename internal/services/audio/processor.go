package audio

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	component     = "AudioProcessor"
	defaultFormat = "mp3"
)

// Processor transcribes and synthesizes speech, caching both directions.
type Processor struct {
	transcriber ai.Transcriber
	synthesizer ai.Synthesizer
	store       cache.Store
	ttl         time.Duration
}

// NewProcessor creates an audio processor. store may be nil.
func NewProcessor(transcriber ai.Transcriber, synthesizer ai.Synthesizer, store cache.Store, ttl time.Duration) *Processor {
	return &Processor{
		transcriber: transcriber,
		synthesizer: synthesizer,
		store:       store,
		ttl:         ttl,
	}
}

// Transcribe converts uploaded audio to text. The fingerprint covers the
// audio content hash, never the raw bytes.
func (p *Processor) Transcribe(ctx context.Context, req models.AudioTranscriptionRequest) (*models.AudioTranscriptionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requestID := utils.RequestIDFromContext(ctx)

	var key string
	if req.UseCache {
		var err error
		key, err = cache.Fingerprint("transcribe", map[string]any{
			"model":      p.transcriber.TranscriptionModel(),
			"audio_hash": cache.HashBytes(req.Audio),
			"language":   req.Language,
			"prompt":     req.Prompt,
		})
		if err != nil {
			fiberlog.Warnf("[%s] %s: Failed to fingerprint transcription, skipping cache: %v", requestID, component, err)
		}
	}

	if key != "" {
		if hit, ok := cache.Lookup[models.AudioTranscriptionResult](ctx, p.store, component, key); ok {
			hit.Cached = true
			return hit, nil
		}
	}

	transcription, err := p.transcriber.Transcribe(ctx, ai.TranscriptionParams{
		Audio:       req.Audio,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Language:    req.Language,
		Prompt:      req.Prompt,
	})
	if err != nil {
		return nil, err
	}

	result := &models.AudioTranscriptionResult{
		Text:     transcription.Text,
		Model:    transcription.Model,
		Language: transcription.Language,
	}

	if key != "" {
		cache.Save(ctx, p.store, component, key, result, p.ttl)
	}
	return result, nil
}

// Synthesize converts text to speech. The audio is returned base64 encoded;
// large payloads are compressed by the cache codec.
func (p *Processor) Synthesize(ctx context.Context, req models.AudioSynthesisRequest) (*models.AudioSynthesisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requestID := utils.RequestIDFromContext(ctx)

	voice := req.Voice
	if voice == "" {
		voice = p.synthesizer.DefaultVoice()
	}
	format := req.ResponseFormat
	if format == "" {
		format = defaultFormat
	}
	var speed float64
	if req.Speed != nil {
		speed = *req.Speed
	}

	var key string
	if req.UseCache {
		var err error
		key, err = cache.Fingerprint("synthesize", map[string]any{
			"model":  p.synthesizer.SpeechModel(),
			"text":   req.Text,
			"voice":  voice,
			"speed":  speed,
			"format": format,
		})
		if err != nil {
			fiberlog.Warnf("[%s] %s: Failed to fingerprint synthesis, skipping cache: %v", requestID, component, err)
		}
	}

	if key != "" {
		if hit, ok := cache.Lookup[models.AudioSynthesisResult](ctx, p.store, component, key); ok {
			hit.Cached = true
			return hit, nil
		}
	}

	speech, err := p.synthesizer.Synthesize(ctx, ai.SpeechParams{
		Text:   req.Text,
		Voice:  voice,
		Format: format,
		Speed:  speed,
	})
	if err != nil {
		return nil, err
	}

	result := &models.AudioSynthesisResult{
		AudioBase64: base64.StdEncoding.EncodeToString(speech.Audio),
		Format:      speech.Format,
		ContentType: speech.ContentType,
		SizeBytes:   len(speech.Audio),
		Voice:       speech.Voice,
		Model:       speech.Model,
	}

	if key != "" {
		cache.Save(ctx, p.store, component, key, result, p.ttl)
	}
	return result, nil
}
