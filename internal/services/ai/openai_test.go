package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI mimics the subset of the OpenAI REST API used by the adapter.
type fakeOpenAI struct {
	server   *httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value
	status   int
}

func newFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()

	f := &fakeOpenAI{status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOpenAI) handle(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	body, _ := io.ReadAll(r.Body)
	f.lastBody.Store(string(body))

	if f.status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream says no","type":"server_error","code":"boom"}}`))
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "analysis result"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "hello world"}`))
	case strings.HasSuffix(r.URL.Path, "/audio/speech"):
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3-bytes"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeOpenAI) provider() *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:             "sk-test",
		BaseURL:            f.server.URL + "/v1/",
		ChatModel:          "gpt-4o",
		VisionModel:        "gpt-4o",
		TranscriptionModel: "whisper-1",
		SpeechModel:        "tts-1",
		Voice:              "alloy",
	})
}

func (f *fakeOpenAI) body(t *testing.T) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.lastBody.Load().(string)), &decoded))
	return decoded
}

func TestOpenAIComplete(t *testing.T) {
	f := newFakeOpenAI(t)
	p := f.provider()

	got, err := p.Complete(context.Background(), CompletionParams{
		Prompt:       "Analyze this",
		SystemPrompt: "You are terse",
		Temperature:  0.3,
		MaxTokens:    50,
	})
	require.NoError(t, err)

	assert.Equal(t, "analysis result", got.Content)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, ProviderOpenAI, got.Provider)
	assert.Equal(t, "stop", got.FinishReason)
	assert.Equal(t, int64(17), got.Usage.TotalTokens)

	body := f.body(t)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIDescribeImages(t *testing.T) {
	f := newFakeOpenAI(t)
	p := f.provider()

	got, err := p.DescribeImages(context.Background(), VisionParams{
		Prompt: "What is this?",
		Images: []Image{{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"}},
		Detail: "low",
	})
	require.NoError(t, err)
	assert.Equal(t, "analysis result", got.Content)

	raw := f.lastBody.Load().(string)
	assert.Contains(t, raw, "data:image/png;base64,")
	assert.Contains(t, raw, `"detail":"low"`)
}

func TestOpenAITranscribe(t *testing.T) {
	f := newFakeOpenAI(t)
	p := f.provider()

	got, err := p.Transcribe(context.Background(), TranscriptionParams{
		Audio:    []byte("fake-audio"),
		Filename: "clip.wav",
		Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Text)
	assert.Equal(t, "whisper-1", got.Model)
	assert.Contains(t, f.lastBody.Load().(string), "clip.wav")
}

func TestOpenAISynthesize(t *testing.T) {
	f := newFakeOpenAI(t)
	p := f.provider()

	got, err := p.Synthesize(context.Background(), SpeechParams{Text: "Say hi"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3fake-mp3-bytes"), got.Audio)
	assert.Equal(t, "audio/mpeg", got.ContentType)
	assert.Equal(t, "mp3", got.Format)
	assert.Equal(t, "alloy", got.Voice)

	body := f.body(t)
	assert.Equal(t, "Say hi", body["input"])
	assert.Equal(t, "alloy", body["voice"])
}

func TestOpenAIUpstreamErrorCarriesStatus(t *testing.T) {
	f := newFakeOpenAI(t)
	f.status = http.StatusServiceUnavailable
	p := f.provider()

	_, err := p.Complete(context.Background(), CompletionParams{Prompt: "x", MaxTokens: 10})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeProvider, appErr.Type)
	assert.Equal(t, http.StatusInternalServerError, appErr.GetStatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, appErr.UpstreamStatus)
	assert.Contains(t, appErr.Message, "upstream says no")
	assert.Equal(t, int32(1), f.calls.Load(), "no internal retries")
}

func TestOpenAIMissingKeyFailsWithoutNetwork(t *testing.T) {
	f := newFakeOpenAI(t)
	p := NewOpenAIProvider(OpenAIConfig{BaseURL: f.server.URL + "/v1/", ChatModel: "gpt-4o"})

	_, err := p.Complete(context.Background(), CompletionParams{Prompt: "x"})
	assert.True(t, models.IsType(err, models.ErrorTypeProvider))
	_, err = p.Transcribe(context.Background(), TranscriptionParams{Audio: []byte("a")})
	assert.True(t, models.IsType(err, models.ErrorTypeProvider))
	_, err = p.Synthesize(context.Background(), SpeechParams{Text: "a"})
	assert.True(t, models.IsType(err, models.ErrorTypeProvider))
	_, err = p.DescribeImages(context.Background(), VisionParams{Prompt: "a"})
	assert.True(t, models.IsType(err, models.ErrorTypeProvider))

	assert.Equal(t, int32(0), f.calls.Load())
}

func TestSpeechContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", speechContentType("mp3"))
	assert.Equal(t, "audio/wav", speechContentType("wav"))
	assert.Equal(t, "audio/opus", speechContentType("opus"))
}
