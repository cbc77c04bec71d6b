package ring

import (
	"sync"
	"testing"
)

func TestBufferWrite(t *testing.T) {
	rb := New(1024)

	chunk := make([]float32, 128)
	for i := range chunk {
		chunk[i] = float32(i) * 0.1
	}
	rb.Write(chunk)

	if rb.Len() != 128 {
		t.Errorf("Len() = %d after Write(128), want 128", rb.Len())
	}
}

func TestBufferReadAllNonDestructive(t *testing.T) {
	rb := New(1024)
	written := []float32{0.1, 0.2, 0.3, 0.4}
	rb.Write(written)

	got := rb.ReadAll()
	if len(got) != len(written) {
		t.Fatalf("ReadAll() len = %d, want %d", len(got), len(written))
	}
	for i, v := range written {
		if got[i] != v {
			t.Errorf("ReadAll()[%d] = %f, want %f", i, got[i], v)
		}
	}

	// non-destructive: a second ReadAll must return the same thing, and
	// Len must be unaffected.
	if rb.Len() != len(written) {
		t.Errorf("Len() = %d after ReadAll(), want %d", rb.Len(), len(written))
	}
	again := rb.ReadAll()
	for i, v := range written {
		if again[i] != v {
			t.Errorf("second ReadAll()[%d] = %f, want %f", i, again[i], v)
		}
	}
}

func TestBufferDrain(t *testing.T) {
	rb := New(1024)
	written := []float32{0.1, 0.2, 0.3, 0.4}
	rb.Write(written)

	drained := rb.Drain()
	if len(drained) != len(written) {
		t.Fatalf("Drain() len = %d, want %d", len(drained), len(written))
	}
	for i, v := range written {
		if drained[i] != v {
			t.Errorf("Drain()[%d] = %f, want %f", i, drained[i], v)
		}
	}

	if rb.Len() != 0 {
		t.Errorf("Len() = %d after Drain(), want 0", rb.Len())
	}
	if got := rb.ReadAll(); len(got) != 0 {
		t.Errorf("ReadAll() after Drain() = %v, want empty", got)
	}
}

// TestBufferOverflow: a 5-slot ring written with 7 values must retain
// exactly the last 5, in order.
func TestBufferOverflow(t *testing.T) {
	rb := New(5)
	rb.Write([]float32{1, 2, 3, 4, 5, 6, 7})

	got := rb.ReadAll()
	want := []float32{3, 4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("ReadAll() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReadAll()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if rb.Len() != 5 {
		t.Errorf("Len() = %d, want 5", rb.Len())
	}
}

func TestBufferOverflowSmaller(t *testing.T) {
	rb := New(4)
	rb.Write([]float32{1, 2, 3, 4, 5, 6})

	drained := rb.Drain()
	want := []float32{3, 4, 5, 6}
	if len(drained) != len(want) {
		t.Fatalf("len = %d, want %d", len(drained), len(want))
	}
	for i := range want {
		if drained[i] != want[i] {
			t.Errorf("drained[%d] = %f, want %f", i, drained[i], want[i])
		}
	}
}

func TestBufferWriteWithinCapacity(t *testing.T) {
	// write(xs) with len(xs) <= capacity must read back exactly xs.
	rb := New(10)
	xs := []float32{1, 2, 3, 4, 5}
	rb.Write(xs)
	got := rb.ReadAll()
	if len(got) != len(xs) {
		t.Fatalf("len = %d, want %d", len(got), len(xs))
	}
	for i := range xs {
		if got[i] != xs[i] {
			t.Errorf("got[%d] = %f, want %f", i, got[i], xs[i])
		}
	}
}

func TestBufferConcurrent(t *testing.T) {
	rb := New(4096)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rb.Write([]float32{float32(j)})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			rb.Drain()
		}
	}()

	wg.Wait() // must not deadlock or panic
}
