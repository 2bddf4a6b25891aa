package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/circuitbreaker"
)

// Guarded wraps provider adapters with a circuit breaker. While the circuit
// is open calls fail immediately with a provider error.
type Guarded struct {
	provider string
	breaker  *circuitbreaker.CircuitBreaker
}

// NewGuarded creates a guard for provider.
func NewGuarded(provider string, config circuitbreaker.Config) *Guarded {
	return &Guarded{
		provider: provider,
		breaker:  circuitbreaker.NewWithConfig(provider, config),
	}
}

// Breaker returns the underlying circuit breaker.
func (g *Guarded) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

func guard[T any](ctx context.Context, g *Guarded, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if !g.breaker.CanExecute() {
		return zero, models.NewProviderError(g.provider, "temporarily unavailable after repeated failures", 0, circuitbreaker.ErrOpen)
	}

	result, err := call(ctx)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
	case tripsBreaker(err):
		g.breaker.RecordFailure()
	}
	return result, err
}

// tripsBreaker reports whether err reflects upstream health: transport
// failures, throttling and 5xx. Caller cancellation and rejected input do not count.
func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Type != models.ErrorTypeProvider {
		return false
	}

	switch {
	case appErr.UpstreamStatus >= http.StatusInternalServerError:
		return true
	case appErr.UpstreamStatus == http.StatusTooManyRequests:
		return true
	case appErr.UpstreamStatus == 0:
		return appErr.Cause != nil
	default:
		return false
	}
}

type guardedCompleter struct {
	*Guarded
	inner TextCompleter
}

// GuardCompleter wraps a text completer.
func GuardCompleter(inner TextCompleter, config circuitbreaker.Config) TextCompleter {
	return &guardedCompleter{Guarded: NewGuarded(inner.Name(), config), inner: inner}
}

func (g *guardedCompleter) Name() string  { return g.inner.Name() }
func (g *guardedCompleter) Model() string { return g.inner.Model() }

func (g *guardedCompleter) Complete(ctx context.Context, params CompletionParams) (*Completion, error) {
	return guard(ctx, g.Guarded, func(ctx context.Context) (*Completion, error) {
		return g.inner.Complete(ctx, params)
	})
}

// GuardedOpenAI shares one breaker across every OpenAI modality since they
// hit the same upstream.
type GuardedOpenAI struct {
	*Guarded
	inner *OpenAIProvider
}

// GuardOpenAI wraps the OpenAI adapter.
func GuardOpenAI(inner *OpenAIProvider, config circuitbreaker.Config) *GuardedOpenAI {
	return &GuardedOpenAI{Guarded: NewGuarded(ProviderOpenAI, config), inner: inner}
}

func (g *GuardedOpenAI) Name() string               { return g.inner.Name() }
func (g *GuardedOpenAI) Model() string              { return g.inner.Model() }
func (g *GuardedOpenAI) VisionModel() string        { return g.inner.VisionModel() }
func (g *GuardedOpenAI) TranscriptionModel() string { return g.inner.TranscriptionModel() }
func (g *GuardedOpenAI) SpeechModel() string        { return g.inner.SpeechModel() }
func (g *GuardedOpenAI) DefaultVoice() string       { return g.inner.DefaultVoice() }

func (g *GuardedOpenAI) Complete(ctx context.Context, params CompletionParams) (*Completion, error) {
	return guard(ctx, g.Guarded, func(ctx context.Context) (*Completion, error) {
		return g.inner.Complete(ctx, params)
	})
}

func (g *GuardedOpenAI) DescribeImages(ctx context.Context, params VisionParams) (*Completion, error) {
	return guard(ctx, g.Guarded, func(ctx context.Context) (*Completion, error) {
		return g.inner.DescribeImages(ctx, params)
	})
}

func (g *GuardedOpenAI) Transcribe(ctx context.Context, params TranscriptionParams) (*Transcription, error) {
	return guard(ctx, g.Guarded, func(ctx context.Context) (*Transcription, error) {
		return g.inner.Transcribe(ctx, params)
	})
}

func (g *GuardedOpenAI) Synthesize(ctx context.Context, params SpeechParams) (*Speech, error) {
	return guard(ctx, g.Guarded, func(ctx context.Context) (*Speech, error) {
		return g.inner.Synthesize(ctx, params)
	})
}
