// Package dsp implements the signal-processing stage between capture and
// voice-activity detection: stereo-to-mono downmix, rational resampling to
// 16 kHz, PCM16 WAV encoding, peak normalization, and an RMS-based VAD
// fallback.
package dsp

// Downmix averages interleaved multi-channel frames into mono by
// arithmetic mean across channels per frame. Mono input (channels == 1)
// is returned unchanged. Used on the realtime audio callback path, so it
// must not allocate more than the one output slice.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
