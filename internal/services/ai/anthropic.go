package ai

import (
	"context"
	"strings"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Anthropic accepts temperatures in [0,1].
const anthropicMaxTemperature = 1.0

// AnthropicConfig configures the Anthropic text adapter.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AnthropicCompleter serves text completions through the Messages API.
type AnthropicCompleter struct {
	model  string
	client *anthropic.Client
}

var _ TextCompleter = (*AnthropicCompleter)(nil)

// NewAnthropicCompleter creates the adapter.
func NewAnthropicCompleter(cfg AnthropicConfig) *AnthropicCompleter {
	a := &AnthropicCompleter{model: cfg.Model}
	if cfg.APIKey == "" {
		return a
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)
	a.client = &client
	return a
}

func (a *AnthropicCompleter) Name() string  { return ProviderAnthropic }
func (a *AnthropicCompleter) Model() string { return a.model }

// Complete sends a single user message and concatenates the text blocks of the reply.
func (a *AnthropicCompleter) Complete(ctx context.Context, params CompletionParams) (*Completion, error) {
	if a.client == nil {
		return nil, missingKey(ProviderAnthropic)
	}
	requestID := utils.RequestIDFromContext(ctx)

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(params.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(params.Prompt)),
		},
		Temperature: anthropic.Float(min(params.Temperature, anthropicMaxTemperature)),
	}
	if params.SystemPrompt != "" {
		req.System = []anthropic.TextBlockParam{{Text: params.SystemPrompt}}
	}

	fiberlog.Infof("[%s] AnthropicCompleter: Making message request - model: %s, max_tokens: %d", requestID, a.model, params.MaxTokens)

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, req)
	observe(ProviderAnthropic, "chat", start, err)
	if err != nil {
		fiberlog.Errorf("[%s] AnthropicCompleter: request failed after %v: %v", requestID, time.Since(start), err)
		return nil, wrapError(ProviderAnthropic, "chat", err)
	}

	fiberlog.Infof("[%s] AnthropicCompleter: request completed in %v - usage: input:%d, output:%d",
		requestID, time.Since(start), msg.Usage.InputTokens, msg.Usage.OutputTokens)

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Completion{
		Content:      content.String(),
		Model:        firstNonEmpty(string(msg.Model), a.model),
		Provider:     ProviderAnthropic,
		FinishReason: string(msg.StopReason),
		Usage:        modelsUsage(msg.Usage.InputTokens, msg.Usage.OutputTokens, 0),
	}, nil
}
