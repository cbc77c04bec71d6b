package vad

import (
	"testing"

	"pgregory.net/rapid"
)

// TestApplyPaddingProp: a frame ends up labeled speech iff it was
// already speech or lies within padding frames of an original speech
// frame, clipped at the buffer ends.
func TestApplyPaddingProp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 128).Draw(t, "n")
		padding := rapid.IntRange(0, 8).Draw(t, "padding")
		in := make([]bool, n)
		for i := range in {
			in[i] = rapid.Bool().Draw(t, "label")
		}

		got := applyPadding(in, padding)

		for i := range in {
			want := false
			for j := i - padding; j <= i+padding; j++ {
				if j >= 0 && j < n && in[j] {
					want = true
					break
				}
			}
			if got[i] != want {
				t.Fatalf("padded[%d] = %v, want %v (in=%v padding=%d)", i, got[i], want, in, padding)
			}
		}
	})
}
