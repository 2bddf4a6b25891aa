package text

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/ai"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	calls atomic.Int32
	last  ai.CompletionParams
	err   error
}

func (f *fakeCompleter) Name() string  { return "fake" }
func (f *fakeCompleter) Model() string { return "fake-model" }

func (f *fakeCompleter) Complete(_ context.Context, params ai.CompletionParams) (*ai.Completion, error) {
	f.calls.Add(1)
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Completion{
		Content:      "echo: " + params.Prompt,
		Model:        "fake-model",
		Provider:     "fake",
		FinishReason: "stop",
		Usage:        models.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	}, nil
}

func newStore(t *testing.T) (*cache.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	m := cache.NewManager(cache.Options{
		URL:             "redis://" + mr.Addr() + "/0",
		Enabled:         true,
		DefaultTTL:      time.Hour,
		ConnectAttempts: 1,
	})
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(func() { _ = m.Disconnect() })
	return m, mr
}

func defaultOptions() Options {
	return Options{DefaultTemperature: 0.7, DefaultMaxTokens: 1000, CacheTTL: time.Minute}
}

func floatPtr(v float64) *float64 { return &v }

func TestAnalyzeAppliesDefaults(t *testing.T) {
	completer := &fakeCompleter{}
	a := NewAnalyzer(completer, nil, nil, defaultOptions())

	res, err := a.Analyze(context.Background(), models.NewTextAnalysisRequest("Test"))
	require.NoError(t, err)

	assert.Equal(t, "echo: Test", res.Content)
	assert.False(t, res.Cached)
	assert.InDelta(t, 0.7, completer.last.Temperature, 1e-9)
	assert.Equal(t, 1000, completer.last.MaxTokens)
	assert.Empty(t, completer.last.SystemPrompt)
}

func TestAnalyzeCacheHitSkipsProvider(t *testing.T) {
	store, _ := newStore(t)
	completer := &fakeCompleter{}
	a := NewAnalyzer(completer, store, nil, defaultOptions())
	ctx := context.Background()

	first, err := a.Analyze(ctx, models.NewTextAnalysisRequest("Test"))
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := a.Analyze(ctx, models.NewTextAnalysisRequest("Test"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, int32(1), completer.calls.Load())
}

func TestAnalyzeUseCacheFalseBypassesCache(t *testing.T) {
	store, mr := newStore(t)
	completer := &fakeCompleter{}
	a := NewAnalyzer(completer, store, nil, defaultOptions())
	ctx := context.Background()

	req := models.NewTextAnalysisRequest("Test")
	req.UseCache = false

	_, err := a.Analyze(ctx, req)
	require.NoError(t, err)
	_, err = a.Analyze(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int32(2), completer.calls.Load())
	assert.Empty(t, mr.Keys())
}

func TestAnalyzeFingerprintDependsOnParameters(t *testing.T) {
	store, mr := newStore(t)
	completer := &fakeCompleter{}
	a := NewAnalyzer(completer, store, nil, defaultOptions())
	ctx := context.Background()

	req := models.NewTextAnalysisRequest("Test")
	_, err := a.Analyze(ctx, req)
	require.NoError(t, err)

	req.Temperature = floatPtr(1.2)
	_, err = a.Analyze(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int32(2), completer.calls.Load())
	assert.Len(t, mr.Keys(), 2)
}

func TestAnalyzeFailsOpenWhenCacheDown(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	completer := &fakeCompleter{}
	a := NewAnalyzer(completer, store, nil, defaultOptions())

	res, err := a.Analyze(context.Background(), models.NewTextAnalysisRequest("Test"))
	require.NoError(t, err)
	assert.Equal(t, "echo: Test", res.Content)
	assert.Equal(t, int32(1), completer.calls.Load())
}

func TestAnalyzePropagatesProviderError(t *testing.T) {
	completer := &fakeCompleter{err: models.NewProviderError("fake", "boom", 502, nil)}
	a := NewAnalyzer(completer, nil, nil, defaultOptions())

	_, err := a.Analyze(context.Background(), models.NewTextAnalysisRequest("Test"))
	assert.True(t, models.IsType(err, models.ErrorTypeProvider))
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	completer := &fakeCompleter{}
	a := NewAnalyzer(completer, nil, nil, defaultOptions())

	req := models.NewTextAnalysisRequest("Test")
	req.Temperature = floatPtr(2.5)

	_, err := a.Analyze(context.Background(), req)
	assert.True(t, models.IsType(err, models.ErrorTypeValidation))
	assert.Equal(t, int32(0), completer.calls.Load())
}

type fakeSemantic struct {
	hit    *models.TextAnalysisResult
	stored int
}

func (f *fakeSemantic) Lookup(context.Context, string, string) (*models.TextAnalysisResult, bool) {
	if f.hit == nil {
		return nil, false
	}
	hit := *f.hit
	return &hit, true
}

func (f *fakeSemantic) Store(context.Context, string, string, models.TextAnalysisResult) error {
	f.stored++
	return nil
}

func TestAnalyzeSemanticTier(t *testing.T) {
	completer := &fakeCompleter{}
	semantic := &fakeSemantic{}
	a := NewAnalyzer(completer, nil, semantic, defaultOptions())
	ctx := context.Background()

	_, err := a.Analyze(ctx, models.NewTextAnalysisRequest("Test"))
	require.NoError(t, err)
	assert.Equal(t, 1, semantic.stored)

	semantic.hit = &models.TextAnalysisResult{Content: "similar answer"}
	res, err := a.Analyze(ctx, models.NewTextAnalysisRequest("Test, rephrased"))
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, "similar answer", res.Content)
	assert.Equal(t, int32(1), completer.calls.Load())
}
