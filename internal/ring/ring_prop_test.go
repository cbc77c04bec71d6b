package ring

import (
	"testing"

	"pgregory.net/rapid"
)

// TestBufferPropWithinCapacity: for any xs with len(xs) <= capacity,
// ReadAll returns exactly xs.
func TestBufferPropWithinCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 512).Draw(t, "capacity")
		n := rapid.IntRange(0, capacity).Draw(t, "n")
		xs := make([]float32, n)
		for i := range xs {
			xs[i] = float32(rapid.Float64Range(-1, 1).Draw(t, "sample"))
		}

		rb := New(capacity)
		rb.Write(xs)

		got := rb.ReadAll()
		if len(got) != len(xs) {
			t.Fatalf("ReadAll() len = %d, want %d", len(got), len(xs))
		}
		for i := range xs {
			if got[i] != xs[i] {
				t.Fatalf("ReadAll()[%d] = %f, want %f", i, got[i], xs[i])
			}
		}
	})
}

// TestBufferPropOverflowKeepsNewest: for any xs with len(xs) > capacity,
// ReadAll returns the last capacity elements of xs in order.
func TestBufferPropOverflowKeepsNewest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 256).Draw(t, "capacity")
		extra := rapid.IntRange(1, 256).Draw(t, "extra")
		xs := make([]float32, capacity+extra)
		for i := range xs {
			xs[i] = float32(i)
		}

		rb := New(capacity)
		rb.Write(xs)

		got := rb.ReadAll()
		if len(got) != capacity {
			t.Fatalf("ReadAll() len = %d, want %d", len(got), capacity)
		}
		want := xs[len(xs)-capacity:]
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ReadAll()[%d] = %f, want %f", i, got[i], want[i])
			}
		}
	})
}

// TestBufferPropDrainEmpties: after Drain, the buffer is empty and a
// subsequent ReadAll yields nothing, regardless of prior writes.
func TestBufferPropDrainEmpties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 256).Draw(t, "capacity")
		n := rapid.IntRange(0, 512).Draw(t, "n")
		rb := New(capacity)
		rb.Write(make([]float32, n))

		rb.Drain()
		if rb.Len() != 0 {
			t.Fatalf("Len() = %d after Drain, want 0", rb.Len())
		}
		if got := rb.ReadAll(); len(got) != 0 {
			t.Fatalf("ReadAll() after Drain returned %d samples, want 0", len(got))
		}
	})
}
