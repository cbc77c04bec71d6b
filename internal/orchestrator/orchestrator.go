// Package orchestrator implements the provider-agnostic dispatcher
// with fallback: one primary transcription provider, one optional
// fallback, and nothing else.
package orchestrator

import (
	"context"

	"dictatord/internal/provider"
)

// Orchestrator holds a primary provider and an optional fallback and
// dispatches a transcription request between them. It never retries the
// primary itself; retry is each provider's own responsibility.
type Orchestrator struct {
	primary  provider.Provider
	fallback provider.Provider
}

// New constructs an Orchestrator with only a primary provider.
func New(primary provider.Provider) *Orchestrator {
	return &Orchestrator{primary: primary}
}

// WithFallback constructs an Orchestrator with both a primary and a
// fallback provider.
func WithFallback(primary, fallback provider.Provider) *Orchestrator {
	return &Orchestrator{primary: primary, fallback: fallback}
}

// PrimaryProvider returns the configured primary provider.
func (o *Orchestrator) PrimaryProvider() provider.Provider { return o.primary }

// FallbackProvider returns the configured fallback provider, or nil.
func (o *Orchestrator) FallbackProvider() provider.Provider { return o.fallback }

// IsPrimaryAvailable reports the primary provider's availability.
func (o *Orchestrator) IsPrimaryAvailable() bool { return o.primary.IsAvailable() }

// IsFallbackAvailable reports whether a fallback is configured and
// available.
func (o *Orchestrator) IsFallbackAvailable() bool {
	return o.fallback != nil && o.fallback.IsAvailable()
}

// Transcribe dispatches to the primary provider; on any primary failure,
// if a fallback is configured and available, it is invoked and its
// result (success or failure) is returned instead.
func (o *Orchestrator) Transcribe(ctx context.Context, audio []float32, cfg provider.Config) (provider.Result, error) {
	if len(audio) == 0 {
		return provider.Result{}, provider.InvalidAudioError{Why: "Empty audio"}
	}

	result, err := o.primary.Transcribe(ctx, audio, cfg)
	if err == nil {
		return result, nil
	}

	if o.fallback != nil && o.fallback.IsAvailable() {
		return o.fallback.Transcribe(ctx, audio, cfg)
	}

	return provider.Result{}, err
}
