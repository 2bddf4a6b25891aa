package models

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// TaskType selects the capability service that runs a pipeline task.
type TaskType string

const (
	TaskTypeText   TaskType = "text"
	TaskTypeAudio  TaskType = "audio"
	TaskTypeVision TaskType = "vision"
)

// AudioAction selects the direction of an audio task.
type AudioAction string

const (
	AudioActionTranscribe AudioAction = "transcribe"
	AudioActionSynthesize AudioAction = "synthesize"
)

// TaskStatus is the outcome of one pipeline task.
type TaskStatus string

const (
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
	TaskStatusSkipped TaskStatus = "skipped"
)

// PipelineStatus summarizes a whole pipeline run.
type PipelineStatus string

const (
	PipelineStatusSuccess PipelineStatus = "success"
	PipelineStatusPartial PipelineStatus = "partial"
	PipelineStatusFailed  PipelineStatus = "failed"
)

// MaxPipelineTasks bounds the number of tasks in a single pipeline request.
const MaxPipelineTasks = 20

// MultimodalTask is one entry of a pipeline request. Which fields apply
// depends on Type (and Action for audio tasks). Binary fields are base64 in JSON.
type MultimodalTask struct {
	Type         TaskType    `json:"type" validate:"required,oneof=text audio vision"`
	Prompt       string      `json:"prompt,omitempty"`
	SystemPrompt *string     `json:"system_prompt,omitempty"`
	Temperature  *float64    `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    *int        `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Action       AudioAction `json:"action,omitempty" validate:"omitempty,oneof=transcribe synthesize"`
	Text         string      `json:"text,omitempty"`
	Voice        string      `json:"voice,omitempty" validate:"omitempty,oneof=alloy echo fable onyx nova shimmer"`
	Audio        []byte      `json:"audio,omitempty"`
	Filename     string      `json:"filename,omitempty"`
	Language     string      `json:"language,omitempty"`
	Images       [][]byte    `json:"images,omitempty"`
	UseCache     bool        `json:"use_cache"`
}

// UnmarshalJSON applies use_cache=true when the field is absent.
func (t *MultimodalTask) UnmarshalJSON(data []byte) error {
	type plain MultimodalTask
	aux := plain{UseCache: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = MultimodalTask(aux)
	return nil
}

// Validate checks the task shape. Payload checks (audio bytes, images) are
// deferred to execution so they are reported against the task, not the request.
func (t MultimodalTask) Validate() error {
	if err := ValidateStruct(t); err != nil {
		return err
	}
	switch t.Type {
	case TaskTypeText, TaskTypeVision:
		if t.Prompt == "" {
			return requiredField("prompt", fmt.Sprintf("field is required for %s tasks", t.Type))
		}
	case TaskTypeAudio:
		if t.Action == "" {
			return requiredField("action", "field is required for audio tasks")
		}
	}
	return nil
}

// TextRequest converts a text task.
func (t MultimodalTask) TextRequest() TextAnalysisRequest {
	return TextAnalysisRequest{
		Prompt:       t.Prompt,
		SystemPrompt: t.SystemPrompt,
		Temperature:  t.Temperature,
		MaxTokens:    t.MaxTokens,
		UseCache:     t.UseCache,
	}
}

// SynthesisRequest converts an audio synthesize task.
func (t MultimodalTask) SynthesisRequest() AudioSynthesisRequest {
	return AudioSynthesisRequest{
		Text:     t.Text,
		Voice:    t.Voice,
		UseCache: t.UseCache,
	}
}

// TranscriptionRequest converts an audio transcribe task.
func (t MultimodalTask) TranscriptionRequest() AudioTranscriptionRequest {
	return AudioTranscriptionRequest{
		Audio:    t.Audio,
		Filename: t.Filename,
		Language: t.Language,
		Prompt:   t.Prompt,
		UseCache: t.UseCache,
	}
}

// VisionRequest converts a vision task, sniffing each image's MIME type.
func (t MultimodalTask) VisionRequest() VisionAnalysisRequest {
	images := make([]ImageInput, 0, len(t.Images))
	for i, data := range t.Images {
		images = append(images, ImageInput{
			Data:     data,
			MimeType: http.DetectContentType(data),
			Filename: fmt.Sprintf("image_%d", i),
		})
	}
	return VisionAnalysisRequest{
		Prompt:    t.Prompt,
		Images:    images,
		MaxTokens: t.MaxTokens,
		UseCache:  t.UseCache,
	}
}

// MultimodalPipelineRequest is the body of POST /api/v1/multimodal/pipeline.
type MultimodalPipelineRequest struct {
	Tasks       []MultimodalTask `json:"tasks" validate:"required,min=1,max=20,dive"`
	StopOnError bool             `json:"stop_on_error"`
}

// Validate checks the task list and every task in it.
func (r MultimodalPipelineRequest) Validate() error {
	if err := ValidateStruct(r); err != nil {
		return err
	}
	for i, task := range r.Tasks {
		if err := task.Validate(); err != nil {
			if appErr, ok := err.(*AppError); ok {
				for j := range appErr.Details {
					appErr.Details[j].Field = fmt.Sprintf("tasks[%d].%s", i, appErr.Details[j].Field)
				}
			}
			return err
		}
	}
	return nil
}

// TaskResult is the outcome of one pipeline task. Result holds the
// capability-specific result on success.
type TaskResult struct {
	Index  int        `json:"index"`
	Type   TaskType   `json:"type"`
	Status TaskStatus `json:"status"`
	Result any        `json:"result,omitempty"`
	Error  *AppError  `json:"error,omitempty"`
}

// MultimodalPipelineResult is returned by the pipeline.
type MultimodalPipelineResult struct {
	RunID      string         `json:"run_id"`
	Status     PipelineStatus `json:"status"`
	Results    []TaskResult   `json:"results"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	DurationMs int64          `json:"duration_ms"`
}
