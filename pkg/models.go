package pkg

import (
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	pkgmodels "github.com/serhatsoysal/ai-driven-multimodal-analytics/pkg/models"
)

type (
	Settings                  = config.Settings
	RateLimitConfig           = pkgmodels.RateLimitConfig
	TimeoutConfig             = pkgmodels.TimeoutConfig
	TextAnalysisRequest       = models.TextAnalysisRequest
	TextAnalysisResult        = models.TextAnalysisResult
	AudioSynthesisRequest     = models.AudioSynthesisRequest
	AudioSynthesisResult      = models.AudioSynthesisResult
	AudioTranscriptionRequest = models.AudioTranscriptionRequest
	AudioTranscriptionResult  = models.AudioTranscriptionResult
	VisionAnalysisRequest     = models.VisionAnalysisRequest
	VisionAnalysisResult      = models.VisionAnalysisResult
	MultimodalPipelineRequest = models.MultimodalPipelineRequest
	MultimodalPipelineResult  = models.MultimodalPipelineResult
	HealthResponse            = models.HealthResponse
	AppError                  = models.AppError
)
