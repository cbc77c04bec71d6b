package vad

import "fmt"

// UnsupportedSampleRateError is returned when FilterSpeech or
// ContainsSpeech is asked to operate on a rate the classifier backend
// cannot handle.
type UnsupportedSampleRateError struct {
	Rate int
}

func (e UnsupportedSampleRateError) Error() string {
	return fmt.Sprintf("vad: unsupported sample rate %d", e.Rate)
}

func isSupportedRate(rate int) bool {
	switch rate {
	case 8000, 16000, 32000, 48000:
		return true
	default:
		return false
	}
}
