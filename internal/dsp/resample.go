package dsp

import (
	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/dsp/fourier"
)

// chunkSize is the fixed input chunk the FFT-based resampler operates on;
// the final chunk of a buffer is zero-padded up to this size before
// transform.
const chunkSize = 1024

// Resample converts samples from fromRate to toRate using a fixed-input
// FFT-based rational resampler: each chunk is transformed to the frequency
// domain, the spectrum is truncated (downsampling) or zero-padded
// (upsampling) to match the target chunk length, and the result is
// inverse-transformed and rescaled.
//
// fromRate == toRate bypasses resampling entirely. Empty input yields
// empty output. A chunk that fails to transform is logged and
// contributes nothing to the output; Resample itself never returns an
// error.
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(input) == 0 {
		return input
	}

	ratio := float64(toRate) / float64(fromRate)
	out := make([]float32, 0, int(float64(len(input))*ratio)+chunkSize)

	for start := 0; start < len(input); start += chunkSize {
		end := start + chunkSize
		if end > len(input) {
			end = len(input)
		}
		n := end - start

		chunk := make([]float64, chunkSize)
		for i := 0; i < n; i++ {
			chunk[i] = float64(input[start+i])
		}

		outLen := int(float64(chunkSize) * ratio)
		if outLen < 1 {
			outLen = 1
		}

		resampled, err := resampleChunk(chunk, outLen)
		if err != nil {
			log.Warn("resample chunk failed, skipping", "component", "dsp", "error", err, "chunk_start", start)
			continue
		}

		// The real chunk only occupies the first n of chunkSize samples;
		// scale that boundary into the resampled length proportionally.
		validLen := int(float64(n) * ratio)
		if validLen > len(resampled) {
			validLen = len(resampled)
		}
		for _, v := range resampled[:validLen] {
			out = append(out, float32(v))
		}
	}

	return out
}

// resampleChunk performs the frequency-domain zero-pad/truncate resample
// of a single fixed-length chunk to outLen samples.
func resampleChunk(chunk []float64, outLen int) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errRecovered(r)
		}
	}()

	n := len(chunk)
	fwd := fourier.NewFFT(n)
	spectrum := fwd.Coefficients(nil, chunk)

	outSpectrumLen := outLen/2 + 1
	padded := make([]complex128, outSpectrumLen)
	copyLen := len(spectrum)
	if copyLen > outSpectrumLen {
		copyLen = outSpectrumLen
	}
	copy(padded, spectrum[:copyLen])

	inv := fourier.NewFFT(outLen)
	seq := inv.Sequence(nil, padded)

	scale := 1 / float64(n)
	for i := range seq {
		seq[i] *= scale
	}
	return seq, nil
}

type resampleError struct{ v any }

func (e resampleError) Error() string { return "dsp: fft panic during resample" }

func errRecovered(v any) error { return resampleError{v: v} }
