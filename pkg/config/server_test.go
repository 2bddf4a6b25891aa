package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/config"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/dependencies"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal 1x1 PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeProviders struct {
	calls   atomic.Int32
	failErr error
}

func (f *fakeProviders) Name() string               { return "fake" }
func (f *fakeProviders) Model() string              { return "fake-chat" }
func (f *fakeProviders) TranscriptionModel() string { return "fake-whisper" }
func (f *fakeProviders) SpeechModel() string        { return "fake-tts" }
func (f *fakeProviders) DefaultVoice() string       { return "alloy" }
func (f *fakeProviders) VisionModel() string        { return "fake-vision" }

func (f *fakeProviders) Complete(_ context.Context, params ai.CompletionParams) (*ai.Completion, error) {
	f.calls.Add(1)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &ai.Completion{Content: "analysis of " + params.Prompt, Model: "fake-chat", Provider: "fake", FinishReason: "stop"}, nil
}

func (f *fakeProviders) Transcribe(_ context.Context, params ai.TranscriptionParams) (*ai.Transcription, error) {
	f.calls.Add(1)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &ai.Transcription{Text: "hello world", Model: "fake-whisper", Language: params.Language}, nil
}

func (f *fakeProviders) Synthesize(_ context.Context, params ai.SpeechParams) (*ai.Speech, error) {
	f.calls.Add(1)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &ai.Speech{Audio: []byte("ID3-audio"), Format: params.Format, ContentType: "audio/mpeg", Model: "fake-tts", Voice: params.Voice}, nil
}

func (f *fakeProviders) DescribeImages(_ context.Context, params ai.VisionParams) (*ai.Completion, error) {
	f.calls.Add(1)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &ai.Completion{Content: "a single pixel", Model: "fake-vision", Provider: "fake"}, nil
}

type testEnv struct {
	app       *fiber.App
	providers *fakeProviders
	settings  *config.Settings
	redis     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate ...func(*config.Settings)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	settings := config.Defaults()
	settings.OpenAIAPIKey = "sk-test"
	settings.RedisURL = "redis://" + mr.Addr() + "/0"
	settings.LogLevel = "error"
	for _, m := range mutate {
		m(settings)
	}

	providers := &fakeProviders{}
	manager := cache.NewManager(cache.Options{
		URL:             settings.RedisURL,
		Enabled:         settings.RedisEnabled,
		DefaultTTL:      settings.CacheTTLDuration(),
		ConnectAttempts: 1,
		DialTimeout:     time.Second,
	})
	container := dependencies.NewContainer(settings, dependencies.Options{
		TextCompleter:  providers,
		Transcriber:    providers,
		Synthesizer:    providers,
		ImageDescriber: providers,
		Cache:          manager,
	})
	t.Cleanup(func() { _ = container.Close() })

	return &testEnv{
		app:       NewApp(settings, container),
		providers: providers,
		settings:  settings,
		redis:     mr,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &decoded), string(body))
	}
	return resp, decoded
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

type upload struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func errorBody(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return errObj
}

func TestHealthReportsBooleans(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["redis_connected"])
	assert.Equal(t, true, body["openai_configured"])
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHealthDegradedWithoutKeyOrRedis(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) { s.OpenAIAPIKey = "" })
	env.redis.Close()

	resp, body := env.do(t, httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, false, body["openai_configured"])
	assert.IsType(t, true, body["redis_connected"])
	assert.Equal(t, "degraded", body["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(fiber.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-from-client")
	resp, _ := env.do(t, req)
	assert.Equal(t, "req-from-client", resp.Header.Get("X-Request-ID"))
}

func TestTextAnalyzeEmptyBodyIs422(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{}`))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	errObj := errorBody(t, body)
	assert.Equal(t, string(models.ErrorTypeValidation), errObj["type"])
	assert.NotEmpty(t, errObj["details"])
	assert.Zero(t, env.providers.calls.Load())
}

func TestTextAnalyzeRejectsOutOfRangeTemperature(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"hi","temperature":3}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Zero(t, env.providers.calls.Load())
}

func TestTextAnalyzeMalformedJSONIs422(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTextAnalyzeSuccessAndCacheHit(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"quarterly sales"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "analysis of quarterly sales", body["content"])
	assert.Equal(t, false, body["cached"])

	resp, body = env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"quarterly sales"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cached"])
	assert.EqualValues(t, 1, env.providers.calls.Load())
}

func TestTextAnalyzeWithoutCacheCallsProviderEachTime(t *testing.T) {
	env := newTestEnv(t)

	for range 2 {
		resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"fresh","use_cache":false}`))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	assert.EqualValues(t, 2, env.providers.calls.Load())
}

func TestProviderErrorIs500(t *testing.T) {
	env := newTestEnv(t)
	env.providers.failErr = models.NewProviderError("openai", "service unavailable", http.StatusServiceUnavailable, nil)

	resp, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"hi"}`))
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	errObj := errorBody(t, body)
	assert.Equal(t, string(models.ErrorTypeProvider), errObj["type"])
	assert.EqualValues(t, http.StatusServiceUnavailable, errObj["upstream_status"])
}

func TestSynthesizeEmptyBodyIs422(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/audio/synthesize", `{}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSynthesizeRejectsUnknownVoice(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/audio/synthesize", `{"text":"hi","voice":"robot"}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSynthesizeJSONAndBinary(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/audio/synthesize", `{"text":"hello","voice":"nova"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["audio_base64"])
	assert.Equal(t, "nova", body["voice"])

	resp, _ = env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/audio/synthesize?format=binary", `{"text":"hello","voice":"nova"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "true", resp.Header.Get("X-Cache-Hit"))
}

func TestTranscribeRequiresFile(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, multipartRequest(t, "/api/v1/audio/transcribe", nil, map[string]string{"language": "en"}))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTranscribeRejectsOversizedFile(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) { s.MaxUploadBytes = 16 })

	resp, body := env.do(t, multipartRequest(t, "/api/v1/audio/transcribe",
		[]upload{{field: "file", filename: "a.mp3", contentType: "audio/mpeg", data: bytes.Repeat([]byte("a"), 64)}}, nil))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "upload too large", errorBody(t, body)["message"])
}

func TestTranscribeSuccess(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, multipartRequest(t, "/api/v1/audio/transcribe",
		[]upload{{field: "file", filename: "a.mp3", contentType: "audio/mpeg", data: []byte("fake-audio")}},
		map[string]string{"language": "en"}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello world", body["text"])
	assert.Equal(t, "en", body["language"])
}

func TestVisionWithoutFilesIs422(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, multipartRequest(t, "/api/v1/vision/analyze?prompt=describe", nil, nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/vision/analyze", `{}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Zero(t, env.providers.calls.Load())
}

func TestVisionRejectsTooManyFiles(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) { s.MaxVisionFiles = 1 })

	files := []upload{
		{field: "files", filename: "a.png", contentType: "image/png", data: pngPixel},
		{field: "files", filename: "b.png", contentType: "image/png", data: pngPixel},
	}
	resp, _ := env.do(t, multipartRequest(t, "/api/v1/vision/analyze", files, nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestVisionRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	files := []upload{{field: "files", filename: "notes.txt", contentType: "text/plain", data: []byte("plain text")}}
	resp, _ := env.do(t, multipartRequest(t, "/api/v1/vision/analyze", files, nil))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestVisionSuccess(t *testing.T) {
	env := newTestEnv(t)

	files := []upload{{field: "files", filename: "a.png", contentType: "application/octet-stream", data: pngPixel}}
	resp, body := env.do(t, multipartRequest(t, "/api/v1/vision/analyze?prompt=what+is+this", files, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "a single pixel", body["content"])
	assert.EqualValues(t, 1, body["image_count"])
}

func TestPipelineIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"tasks":[{"type":"text","prompt":"one"},{"type":"audio","action":"transcribe"},{"type":"text","prompt":"three"}]}`
	resp, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/multimodal/pipeline", payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "partial", body["status"])
	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	assert.Equal(t, "success", results[0].(map[string]any)["status"])
	assert.Equal(t, "error", results[1].(map[string]any)["status"])
	assert.Equal(t, "success", results[2].(map[string]any)["status"])
}

func TestPipelineRejectsEmptyTasks(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/multimodal/pipeline", `{"tasks":[]}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCacheEviction(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"evict me"}`))
	keys := env.redis.Keys()
	require.Len(t, keys, 1)

	resp, _ := env.do(t, httptest.NewRequest(fiber.MethodDelete, "/api/v1/cache/"+keys[0], nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, env.redis.Keys())

	_, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"evict me"}`))
	assert.Equal(t, false, body["cached"])
}

func TestAuthEnforcedWhenEnabled(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) {
		s.AuthEnabled = true
		s.APISecretKey = "api-secret"
		s.JWTSecretKey = "jwt-secret"
	})

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"hi"}`))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/auth/token", `{"api_key":"api-secret"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	req := jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"hi"}`)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = env.do(t, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = jsonRequest(fiber.MethodPost, "/api/v1/text/analyze", `{"prompt":"hi"}`)
	req.Header.Set("X-API-Key", "api-secret")
	resp, _ = env.do(t, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTokenRejectsWrongKey(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) {
		s.AuthEnabled = true
		s.APISecretKey = "api-secret"
		s.JWTSecretKey = "jwt-secret"
	})

	resp, _ := env.do(t, jsonRequest(fiber.MethodPost, "/api/v1/auth/token", `{"api_key":"wrong"}`))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimitReturns429(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) {
		s.RateLimitMax = 1
		s.RateLimitWindow = time.Minute
	})

	resp, _ := env.do(t, httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := env.do(t, httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	errObj := errorBody(t, body)
	assert.Equal(t, "rate_limit_error", errObj["type"])
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errObj["code"])
	assert.Contains(t, errObj["message"], "1 requests per 1m0s")

	resp, _ = env.do(t, httptest.NewRequest(fiber.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "health is not rate limited")
}

func TestMetricsAndWelcome(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := env.do(t, httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, config.Version, body["version"])
}

func TestSetupLogLevel(t *testing.T) {
	for _, level := range []string{"DEBUG", "info", "warning", "error", "bogus"} {
		setupLogLevel(&config.Settings{LogLevel: level})
	}
}
