package models

import "encoding/json"

// TextAnalysisRequest is the body of POST /api/v1/text/analyze.
// Temperature and MaxTokens stay nil when the caller omits them and are
// resolved from settings by the analyzer.
type TextAnalysisRequest struct {
	Prompt       string   `json:"prompt" validate:"required"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	UseCache     bool     `json:"use_cache"`
}

// NewTextAnalysisRequest returns a request with the documented defaults.
func NewTextAnalysisRequest(prompt string) TextAnalysisRequest {
	return TextAnalysisRequest{Prompt: prompt, UseCache: true}
}

// UnmarshalJSON applies use_cache=true when the field is absent.
func (r *TextAnalysisRequest) UnmarshalJSON(data []byte) error {
	type plain TextAnalysisRequest
	aux := plain{UseCache: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = TextAnalysisRequest(aux)
	return nil
}

// Validate checks required fields and numeric ranges.
func (r TextAnalysisRequest) Validate() error {
	return ValidateStruct(r)
}

// TokenUsage reports provider token accounting.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// TextAnalysisResult is returned by the text analyzer.
type TextAnalysisResult struct {
	Content      string      `json:"content"`
	Model        string      `json:"model"`
	Provider     string      `json:"provider"`
	FinishReason string      `json:"finish_reason,omitzero"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	Cached       bool        `json:"cached"`
}
