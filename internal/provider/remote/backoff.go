package remote

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackoff builds a cenkalti/backoff/v4 ExponentialBackOff whose
// schedule is exactly min(1000 * 2^k, 30_000) ms. RandomizationFactor is
// zeroed because the library's default jitter would make the delay
// non-deterministic.
func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1000 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // the remote provider's own attempt counter bounds retries
	b.Reset()
	return b
}

// RetryDelay returns the deterministic backoff schedule's delay before
// attempt k+1, for k >= 0: min(1000 * 2^k, 30_000) ms. Exposed standalone
// so the schedule can be tested as a pure function.
func RetryDelay(k int) time.Duration {
	b := newBackoff()
	var d time.Duration
	for i := 0; i <= k; i++ {
		d = b.NextBackOff()
	}
	return d
}
