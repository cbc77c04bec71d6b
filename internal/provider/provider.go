// Package provider defines the transcription provider contract shared by
// the local (embedded) and remote (HTTP) backends, and the orchestrator
// that dispatches across them.
package provider

import "context"

// Config carries the per-call transcription options.
type Config struct {
	Language  string // ISO-639-1, or "auto"
	Translate bool
}

// Result is a successful transcription outcome.
type Result struct {
	Text       string
	Language   string
	DurationMs int64
	Provider   string
}

// Provider is the capability set every transcription backend implements:
// transcribe, identify itself, report availability, and optionally report
// a cost estimate.
type Provider interface {
	Transcribe(ctx context.Context, audio []float32, cfg Config) (Result, error)
	Name() string
	IsAvailable() bool
	CostPerMinute() (float64, bool)
}
