package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/metrics"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TextAnalyzer runs text tasks.
type TextAnalyzer interface {
	Analyze(ctx context.Context, req models.TextAnalysisRequest) (*models.TextAnalysisResult, error)
}

// AudioProcessor runs audio tasks.
type AudioProcessor interface {
	Transcribe(ctx context.Context, req models.AudioTranscriptionRequest) (*models.AudioTranscriptionResult, error)
	Synthesize(ctx context.Context, req models.AudioSynthesisRequest) (*models.AudioSynthesisResult, error)
}

// VisionAnalyzer runs vision tasks.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, req models.VisionAnalysisRequest) (*models.VisionAnalysisResult, error)
}

// Pipeline runs an ordered list of heterogeneous tasks. Every task is
// attempted and reported at its input position; a failing task does not
// abort the others unless the request asks for stop_on_error.
type Pipeline struct {
	text        TextAnalyzer
	audio       AudioProcessor
	vision      VisionAnalyzer
	concurrency int
}

// New creates a pipeline. concurrency < 2 runs tasks sequentially in order.
func New(text TextAnalyzer, audio AudioProcessor, vision VisionAnalyzer, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		text:        text,
		audio:       audio,
		vision:      vision,
		concurrency: concurrency,
	}
}

// Run validates the request and executes its tasks.
func (p *Pipeline) Run(ctx context.Context, req models.MultimodalPipelineRequest) (*models.MultimodalPipelineResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	requestID := utils.RequestIDFromContext(ctx)
	start := time.Now()

	fiberlog.Infof("[%s] Pipeline: Starting run %s with %d task(s), concurrency=%d, stop_on_error=%t",
		requestID, runID, len(req.Tasks), p.concurrency, req.StopOnError)

	results := make([]models.TaskResult, len(req.Tasks))
	var stopped atomic.Bool

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, task := range req.Tasks {
		g.Go(func() error {
			if stopped.Load() {
				results[i] = models.TaskResult{Index: i, Type: task.Type, Status: models.TaskStatusSkipped}
				return nil
			}

			results[i] = p.runTask(ctx, i, task)
			if results[i].Status == models.TaskStatusError && req.StopOnError {
				stopped.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(runID, results, time.Since(start))

	fiberlog.Infof("[%s] Pipeline: Run %s finished with status %s (succeeded=%d failed=%d skipped=%d) in %dms",
		requestID, runID, summary.Status, summary.Succeeded, summary.Failed, summary.Skipped, summary.DurationMs)
	return summary, nil
}

func (p *Pipeline) runTask(ctx context.Context, index int, task models.MultimodalTask) models.TaskResult {
	result := models.TaskResult{Index: index, Type: task.Type}

	if err := ctx.Err(); err != nil {
		result.Status = models.TaskStatusError
		result.Error = models.SanitizeError(models.NewInternalError("request cancelled before task started", err))
		metrics.RecordPipelineTask(string(task.Type), string(result.Status))
		return result
	}

	value, err := p.dispatch(ctx, task)
	if err != nil {
		fiberlog.Warnf("[%s] Pipeline: Task %d (%s) failed: %v", utils.RequestIDFromContext(ctx), index, task.Type, err)
		result.Status = models.TaskStatusError
		result.Error = models.SanitizeError(err)
	} else {
		result.Status = models.TaskStatusSuccess
		result.Result = value
	}

	metrics.RecordPipelineTask(string(task.Type), string(result.Status))
	return result
}

func (p *Pipeline) dispatch(ctx context.Context, task models.MultimodalTask) (any, error) {
	switch task.Type {
	case models.TaskTypeText:
		return p.text.Analyze(ctx, task.TextRequest())
	case models.TaskTypeAudio:
		switch task.Action {
		case models.AudioActionTranscribe:
			return p.audio.Transcribe(ctx, task.TranscriptionRequest())
		case models.AudioActionSynthesize:
			return p.audio.Synthesize(ctx, task.SynthesisRequest())
		default:
			return nil, models.NewValidationError(fmt.Sprintf("unsupported audio action %q", task.Action), nil, nil)
		}
	case models.TaskTypeVision:
		return p.vision.Analyze(ctx, task.VisionRequest())
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unsupported task type %q", task.Type), nil, nil)
	}
}

func summarize(runID string, results []models.TaskResult, elapsed time.Duration) *models.MultimodalPipelineResult {
	summary := &models.MultimodalPipelineResult{
		RunID:      runID,
		Results:    results,
		DurationMs: elapsed.Milliseconds(),
	}

	for _, r := range results {
		switch r.Status {
		case models.TaskStatusSuccess:
			summary.Succeeded++
		case models.TaskStatusError:
			summary.Failed++
		case models.TaskStatusSkipped:
			summary.Skipped++
		}
	}

	switch {
	case summary.Succeeded == len(results):
		summary.Status = models.PipelineStatusSuccess
	case summary.Succeeded == 0:
		summary.Status = models.PipelineStatusFailed
	default:
		summary.Status = models.PipelineStatusPartial
	}
	return summary
}
