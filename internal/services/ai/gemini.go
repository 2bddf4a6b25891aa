package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini text adapter.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiCompleter serves text completions through the Gemini API.
type GeminiCompleter struct {
	model  string
	client *genai.Client
}

var _ TextCompleter = (*GeminiCompleter)(nil)

// NewGeminiCompleter creates the adapter and its client.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	g := &GeminiCompleter{model: cfg.Model}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiCompleter) Name() string  { return ProviderGemini }
func (g *GeminiCompleter) Model() string { return g.model }

// Complete sends a single-turn generate request.
func (g *GeminiCompleter) Complete(ctx context.Context, params CompletionParams) (*Completion, error) {
	if g.client == nil {
		return nil, missingKey(ProviderGemini)
	}
	requestID := utils.RequestIDFromContext(ctx)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens: int32(params.MaxTokens),
	}
	if params.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(params.SystemPrompt, genai.RoleUser)
	}

	fiberlog.Infof("[%s] GeminiCompleter: Making generate request - model: %s", requestID, g.model)

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(params.Prompt), cfg)
	observe(ProviderGemini, "chat", start, err)
	if err != nil {
		fiberlog.Errorf("[%s] GeminiCompleter: request failed after %v: %v", requestID, time.Since(start), err)
		return nil, wrapError(ProviderGemini, "generate", err)
	}

	fiberlog.Infof("[%s] GeminiCompleter: request completed in %v", requestID, time.Since(start))

	completion := &Completion{
		Content:  resp.Text(),
		Model:    firstNonEmpty(resp.ModelVersion, g.model),
		Provider: ProviderGemini,
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		completion.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if usage := resp.UsageMetadata; usage != nil {
		completion.Usage = modelsUsage(
			int64(usage.PromptTokenCount),
			int64(usage.CandidatesTokenCount),
			int64(usage.TotalTokenCount),
		)
	}
	return completion, nil
}
