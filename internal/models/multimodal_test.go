package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultimodalTaskDecodeDefaults(t *testing.T) {
	var task MultimodalTask
	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","prompt":"hi"}`), &task))
	assert.True(t, task.UseCache)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","prompt":"hi","use_cache":false}`), &task))
	assert.False(t, task.UseCache)
}

func TestMultimodalTaskValidate(t *testing.T) {
	tests := []struct {
		name      string
		task      MultimodalTask
		wantField string
	}{
		{name: "text", task: MultimodalTask{Type: TaskTypeText, Prompt: "hi"}},
		{name: "vision", task: MultimodalTask{Type: TaskTypeVision, Prompt: "describe"}},
		{name: "audio transcribe", task: MultimodalTask{Type: TaskTypeAudio, Action: AudioActionTranscribe}},
		{name: "audio synthesize", task: MultimodalTask{Type: TaskTypeAudio, Action: AudioActionSynthesize, Text: "hi"}},
		{name: "text without prompt", task: MultimodalTask{Type: TaskTypeText}, wantField: "prompt"},
		{name: "vision without prompt", task: MultimodalTask{Type: TaskTypeVision}, wantField: "prompt"},
		{name: "audio without action", task: MultimodalTask{Type: TaskTypeAudio}, wantField: "action"},
		{name: "unknown action", task: MultimodalTask{Type: TaskTypeAudio, Action: "translate"}, wantField: "action"},
		{name: "unknown type", task: MultimodalTask{Type: "video", Prompt: "hi"}, wantField: "type"},
		{name: "missing type", task: MultimodalTask{Prompt: "hi"}, wantField: "type"},
		{name: "bad voice", task: MultimodalTask{Type: TaskTypeAudio, Action: AudioActionSynthesize, Voice: "robot"}, wantField: "voice"},
		{name: "temperature out of range", task: MultimodalTask{Type: TaskTypeText, Prompt: "hi", Temperature: ptr(3.0)}, wantField: "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, ErrorTypeValidation, appErr.Type)
			require.Len(t, appErr.Details, 1)
			assert.Equal(t, tt.wantField, appErr.Details[0].Field)
		})
	}
}

func TestMultimodalPipelineRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "mixed tasks", body: `{"tasks":[{"type":"text","prompt":"a"},{"type":"audio","action":"synthesize","text":"b"}]}`},
		{name: "empty tasks", body: `{"tasks":[]}`, wantField: "tasks"},
		{name: "missing tasks", body: `{}`, wantField: "tasks"},
		{name: "per-type rule is prefixed", body: `{"tasks":[{"type":"text","prompt":"a"},{"type":"vision"}]}`, wantField: "tasks[1].prompt"},
		{name: "tag rule is prefixed", body: `{"tasks":[{"type":"text","prompt":"a","max_tokens":-1}]}`, wantField: "tasks[0].max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MultimodalPipelineRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			err := req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			require.NotEmpty(t, appErr.Details)
			assert.Equal(t, tt.wantField, appErr.Details[0].Field)
		})
	}
}

func TestMultimodalPipelineRequestRejectsTooManyTasks(t *testing.T) {
	req := MultimodalPipelineRequest{}
	for range MaxPipelineTasks + 1 {
		req.Tasks = append(req.Tasks, MultimodalTask{Type: TaskTypeText, Prompt: "x"})
	}

	err := req.Validate()
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeValidation))
}

func ptr[T any](v T) *T { return &v }
