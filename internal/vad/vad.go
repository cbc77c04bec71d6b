package vad

import "encoding/binary"

// FilterSpeech classifies samples into speech/non-speech frames, filters
// short speech runs, applies hysteresis padding, and returns the
// concatenated speech-only audio plus summary statistics.
func FilterSpeech(samples []float32, sampleRate int, cfg Config, backend Backend) (Result, error) {
	if !isSupportedRate(sampleRate) {
		return Result{}, UnsupportedSampleRateError{Rate: sampleRate}
	}

	frameSamples := sampleRate * cfg.FrameDurationMs / 1000
	if frameSamples <= 0 {
		frameSamples = 1
	}

	labels, frameBounds := classifyFrames(samples, sampleRate, frameSamples, backend)

	minFrames := cfg.MinSpeechDurationMs / cfg.FrameDurationMs
	labels = filterShortSegments(labels, minFrames)

	paddingFrames := cfg.PaddingMs / cfg.FrameDurationMs
	labels = applyPadding(labels, paddingFrames)

	var out []float32
	segments := 0
	prevSpeech := false
	for i, speech := range labels {
		if speech {
			if !prevSpeech {
				segments++
			}
			lo, hi := frameBounds[i][0], frameBounds[i][1]
			out = append(out, samples[lo:hi]...)
		}
		prevSpeech = speech
	}

	originalMs := float64(len(samples)) / float64(sampleRate) * 1000
	speechMs := float64(len(out)) / float64(sampleRate) * 1000
	pct := 0.0
	if originalMs > 0 {
		pct = speechMs / originalMs * 100
	}

	return Result{
		Audio:              out,
		OriginalDurationMs: originalMs,
		SpeechDurationMs:   speechMs,
		SpeechSegments:     segments,
		SpeechPercentage:   pct,
	}, nil
}

// ContainsSpeech is a cheap pre-flight gate: classify the first up-to-10
// full frames and report true iff more than 20% are speech. Callers run
// this before paying for a full FilterSpeech pass.
func ContainsSpeech(samples []float32, sampleRate int, cfg Config, backend Backend) (bool, error) {
	if !isSupportedRate(sampleRate) {
		return false, UnsupportedSampleRateError{Rate: sampleRate}
	}

	frameSamples := sampleRate * cfg.FrameDurationMs / 1000
	if frameSamples <= 0 {
		frameSamples = 1
	}

	totalFrames := len(samples) / frameSamples
	framesToCheck := totalFrames
	if framesToCheck > 10 {
		framesToCheck = 10
	}
	if framesToCheck == 0 {
		return false, nil
	}

	speechCount := 0
	for i := 0; i < framesToCheck; i++ {
		lo := i * frameSamples
		hi := lo + frameSamples
		frame := samples[lo:hi]
		speech, err := classifyOne(frame, sampleRate, backend)
		if err != nil {
			return false, err
		}
		if speech {
			speechCount++
		}
	}

	return float64(speechCount) > 0.2*float64(framesToCheck), nil
}

// classifyFrames splits samples into fixed-size frames, classifies each
// full frame, and forces a trailing partial frame to speech so it is
// never clipped. It returns the per-frame label and the [lo, hi) sample
// bounds of each frame.
func classifyFrames(samples []float32, sampleRate, frameSamples int, backend Backend) ([]bool, [][2]int) {
	var labels []bool
	var bounds [][2]int

	n := len(samples)
	for lo := 0; lo < n; lo += frameSamples {
		hi := lo + frameSamples
		if hi > n {
			// Final partial frame: forced speech, never clipped.
			labels = append(labels, true)
			bounds = append(bounds, [2]int{lo, n})
			break
		}
		speech, err := classifyOne(samples[lo:hi], sampleRate, backend)
		if err != nil {
			speech = false
		}
		labels = append(labels, speech)
		bounds = append(bounds, [2]int{lo, hi})
	}

	return labels, bounds
}

func classifyOne(frame []float32, sampleRate int, backend Backend) (bool, error) {
	pcm := make([]byte, len(frame)*2)
	for i, s := range frame {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767.0)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return backend.Process(sampleRate, pcm)
}

// filterShortSegments flips any contiguous run of speech frames shorter
// than minFrames to non-speech. A run still open at the end of the slice
// is treated as closed at the boundary.
func filterShortSegments(labels []bool, minFrames int) []bool {
	out := make([]bool, len(labels))
	copy(out, labels)

	runStart := -1
	for i := 0; i <= len(out); i++ {
		isSpeech := i < len(out) && out[i]
		if isSpeech {
			if runStart == -1 {
				runStart = i
			}
			continue
		}
		if runStart != -1 {
			if i-runStart < minFrames {
				for j := runStart; j < i; j++ {
					out[j] = false
				}
			}
			runStart = -1
		}
	}
	return out
}

// applyPadding runs a forward then a backward pass over labels. In each
// pass, after a speech frame a countdown of padding non-speech frames is
// flipped to speech; each pass observes the mutations of the passes
// before it.
func applyPadding(labels []bool, padding int) []bool {
	out := make([]bool, len(labels))
	copy(out, labels)

	padDirection(out, padding, false)
	padDirection(out, padding, true)
	return out
}

func padDirection(out []bool, padding int, reverse bool) {
	n := len(out)
	countdown := 0
	for i := 0; i < n; i++ {
		j := i
		if reverse {
			j = n - 1 - i
		}
		if out[j] {
			countdown = padding
		} else if countdown > 0 {
			out[j] = true
			countdown--
		}
	}
}
