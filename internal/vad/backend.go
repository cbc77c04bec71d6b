package vad

import (
	"encoding/binary"
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"dictatord/internal/dsp"
)

// Backend classifies a single fixed-size frame as speech or non-speech.
// Implemented by the real WebRTC-style classifier and by an RMS-threshold
// fallback so tests and RMS-only environments don't need the classifier
// library.
type Backend interface {
	ValidRateAndFrameLength(sampleRate, frameLength int) bool
	Process(sampleRate int, frame []byte) (bool, error)
}

// webrtcBackend adapts github.com/maxhawkins/go-webrtcvad to Backend.
type webrtcBackend struct {
	vad *webrtcvad.VAD
}

// NewWebRTCBackend constructs a Backend backed by the WebRTC-derived frame
// classifier, configured at the given aggressiveness mode.
func NewWebRTCBackend(mode Mode) (Backend, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("vad: creating webrtc backend: %w", err)
	}
	webrtcMode := int(mode)
	if webrtcMode > 3 {
		webrtcMode = 3 // RMS has no webrtc-mode equivalent; clamp defensively
	}
	if err := v.SetMode(webrtcMode); err != nil {
		return nil, fmt.Errorf("vad: setting mode: %w", err)
	}
	return &webrtcBackend{vad: v}, nil
}

func (b *webrtcBackend) ValidRateAndFrameLength(sampleRate, frameLength int) bool {
	return b.vad.ValidRateAndFrameLength(sampleRate, frameLength)
}

func (b *webrtcBackend) Process(sampleRate int, frame []byte) (bool, error) {
	return b.vad.Process(sampleRate, frame)
}

// rmsBackend is the RMS-threshold fallback classifier.
type rmsBackend struct {
	thresholdDB float64
}

// NewRMSBackend constructs a Backend that classifies a frame as speech
// when its RMS level in dBFS exceeds thresholdDB.
func NewRMSBackend(thresholdDB float64) Backend {
	return &rmsBackend{thresholdDB: thresholdDB}
}

func (b *rmsBackend) ValidRateAndFrameLength(sampleRate, frameLength int) bool {
	return isSupportedRate(sampleRate) && frameLength > 0
}

func (b *rmsBackend) Process(_ int, frame []byte) (bool, error) {
	samples := bytesToFloat32(frame)
	return dsp.IsAboveThreshold(samples, b.thresholdDB), nil
}

func bytesToFloat32(frame []byte) []float32 {
	out := make([]float32, len(frame)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(frame[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return out
}
