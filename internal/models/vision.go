package models

// DefaultVisionPrompt is used when an upload carries no prompt.
const DefaultVisionPrompt = "Describe this image in detail."

// ImageInput is one uploaded image.
type ImageInput struct {
	Data     []byte `json:"data" validate:"required"`
	MimeType string `json:"mime_type" validate:"required,oneof=image/png image/jpeg image/gif image/webp"`
	Filename string `json:"filename,omitempty"`
}

// VisionAnalysisRequest is assembled from the multipart form of
// POST /api/v1/vision/analyze.
type VisionAnalysisRequest struct {
	Prompt    string       `json:"prompt" validate:"required"`
	Images    []ImageInput `json:"images" validate:"required,min=1,dive"`
	Detail    string       `json:"detail,omitempty" validate:"omitempty,oneof=auto low high"`
	MaxTokens *int         `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	UseCache  bool         `json:"use_cache"`
}

// Validate checks the prompt and every image.
func (r VisionAnalysisRequest) Validate() error {
	return ValidateStruct(r)
}

// VisionAnalysisResult is returned by the vision analyzer.
type VisionAnalysisResult struct {
	Content    string      `json:"content"`
	Model      string      `json:"model"`
	ImageCount int         `json:"image_count"`
	Usage      *TokenUsage `json:"usage,omitempty"`
	Cached     bool        `json:"cached"`
}
