package provider

import "fmt"

// ModelNotLoadedError is returned when a transcription is requested before
// a local model has been loaded.
type ModelNotLoadedError struct{}

func (ModelNotLoadedError) Error() string { return "provider: model not loaded" }

// ModelNotFoundError is returned when the configured model file is
// absent from disk.
type ModelNotFoundError struct{ Path string }

func (e ModelNotFoundError) Error() string {
	return fmt.Sprintf("provider: model not found: %s", e.Path)
}

// InvalidAudioError is returned when the audio given to a provider or the
// orchestrator fails a precondition (e.g. empty).
type InvalidAudioError struct{ Why string }

func (e InvalidAudioError) Error() string { return fmt.Sprintf("provider: invalid audio: %s", e.Why) }

// InvalidPathError is returned when a model path cannot be consumed by
// the backend (e.g. non-UTF-8).
type InvalidPathError struct{ Why string }

func (e InvalidPathError) Error() string { return fmt.Sprintf("provider: invalid path: %s", e.Why) }

// ApiError carries a non-retryable HTTP error body verbatim.
type ApiError struct{ Body string }

func (e ApiError) Error() string { return fmt.Sprintf("provider: api error: %s", e.Body) }

// NetworkError wraps a retryable transport-level failure.
type NetworkError struct{ Why string }

func (e NetworkError) Error() string { return fmt.Sprintf("provider: network error: %s", e.Why) }

func (NetworkError) IsRetryable() bool { return true }

// RateLimitedError is returned on HTTP 429; retryable.
type RateLimitedError struct{}

func (RateLimitedError) Error() string { return "provider: rate limited" }

func (RateLimitedError) IsRetryable() bool { return true }

// TimeoutError is returned when a call exceeds its deadline.
type TimeoutError struct{ Seconds int }

func (e TimeoutError) Error() string {
	return fmt.Sprintf("provider: timed out after %ds", e.Seconds)
}

// FailedError wraps any other backend-specific failure.
type FailedError struct{ Why string }

func (e FailedError) Error() string { return fmt.Sprintf("provider: failed: %s", e.Why) }

// retryableError is implemented by errors that the remote provider's
// retry loop should retry on.
type retryableError interface {
	IsRetryable() bool
}

// IsRetryable reports whether err should be retried by the remote
// provider's backoff loop: network errors, rate limiting, and HTTP 5xx
// (surfaced as NetworkError by the HTTP layer) are retryable; anything
// else, including other 4xx surfaced as ApiError, is not.
func IsRetryable(err error) bool {
	if r, ok := err.(retryableError); ok {
		return r.IsRetryable()
	}
	return false
}
