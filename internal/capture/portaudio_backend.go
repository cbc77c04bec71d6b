package capture

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

const defaultFramesPerBuffer = 512

// PortAudioBackend wraps gordonklaus/portaudio for production capture.
type PortAudioBackend struct {
	stream *portaudio.Stream
}

// NewPortAudioBackend constructs a production Backend.
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

func (p *PortAudioBackend) Open(onFrame func([]float32, int), onError func(string)) (int, int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, 0, fmt.Errorf("portaudio init: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return 0, 0, err
	}
	channels := defaultInput.MaxInputChannels
	if channels < 1 {
		channels = 1
	}
	rate := int(defaultInput.DefaultSampleRate)

	stream, err := portaudio.OpenDefaultStream(
		channels,
		0,
		float64(rate),
		defaultFramesPerBuffer,
		func(in []float32) {
			frame := make([]float32, len(in))
			copy(frame, in)
			onFrame(frame, channels)
		},
	)
	if err != nil {
		portaudio.Terminate()
		errStr := strings.ToLower(err.Error())
		if strings.Contains(errStr, "denied") || strings.Contains(errStr, "unauthorized") {
			return 0, 0, ErrMicPermissionDenied
		}
		return 0, 0, fmt.Errorf("portaudio open stream: %w", err)
	}

	p.stream = stream
	// This binding has no dedicated async stream-error channel;
	// stream-runtime errors surface through Start/Stop/Close return
	// values instead.
	_ = onError
	return rate, channels, nil
}

func (p *PortAudioBackend) Start() error {
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("portaudio start stream: %w", err)
	}
	return nil
}

func (p *PortAudioBackend) Stop() error {
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("portaudio stop stream: %w", err)
	}
	return nil
}

func (p *PortAudioBackend) Close() error {
	err := p.stream.Close()
	portaudio.Terminate()
	return err
}
