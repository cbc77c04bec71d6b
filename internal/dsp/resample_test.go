package dsp

import "testing"

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, -0.3, 0.4}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], in[i])
		}
	}
}

func TestResampleEmptyIsEmpty(t *testing.T) {
	out := Resample(nil, 44100, 16000)
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}

func TestResampleDownsampleShrinksLength(t *testing.T) {
	in := make([]float32, 4800) // 100ms @ 48kHz
	for i := range in {
		in[i] = 0.1
	}
	out := Resample(in, 48000, 16000)
	if len(out) == 0 {
		t.Fatal("expected non-empty output")
	}
	// Downsampling by 1/3 should roughly third the sample count.
	wantApprox := len(in) / 3
	if out := len(out); out > wantApprox*2 || out < wantApprox/2 {
		t.Errorf("len(out) = %d, want roughly %d", out, wantApprox)
	}
}
