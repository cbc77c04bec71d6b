package remote

import (
	"testing"
	"time"
)

// TestRetryDelaySchedule pins the delay before attempt k+1 to exactly
// min(1000 * 2^k, 30_000) ms.
func TestRetryDelaySchedule(t *testing.T) {
	tests := []struct {
		k    int
		want time.Duration
	}{
		{0, 1000 * time.Millisecond},
		{1, 2000 * time.Millisecond},
		{2, 4000 * time.Millisecond},
		{3, 8000 * time.Millisecond},
		{4, 16000 * time.Millisecond},
		{5, 30000 * time.Millisecond}, // would be 32000, capped at 30000
		{6, 30000 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.k); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.k, got, tt.want)
		}
	}
}
