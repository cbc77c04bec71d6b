// Package capture implements the audio capture worker: a long-lived
// goroutine that owns the OS input stream handle, driven by a
// {Start, Stop, Shutdown} command channel, with device-rate discovery
// for the downstream resampler.
package capture

import (
	"strings"
	"sync"
	"time"

	"dictatord/internal/dsp"
	"dictatord/internal/ring"
)

// minBufferSeconds is the buffer-capacity floor regardless of the
// configured buffer duration.
const minBufferSeconds = 60

// Backend abstracts the real audio library so the worker can be tested
// without a real microphone.
type Backend interface {
	// Open builds the input stream at the device's default config and
	// returns the device's actual sample rate and channel count.
	Open(onFrame func(frame []float32, channels int), onError func(msg string)) (deviceRate int, channels int, err error)
	Start() error
	Stop() error
	Close() error
}

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdShutdown
)

// Worker owns the OS stream handle and the ring buffer it feeds.
type Worker struct {
	backend Backend
	cmds    chan command

	mu          sync.Mutex
	buf         *ring.Buffer
	recording   bool
	deviceRate  int
	lastErr     *StreamError
	shutdownAck chan struct{}
}

// New constructs a Worker. buf should be sized by the caller from
// max(configuredBufferSeconds, minBufferSeconds) at the expected device
// rate; Open's discovered rate may require the caller to resize before
// the first Start.
func New(backend Backend, buf *ring.Buffer) *Worker {
	w := &Worker{
		backend:     backend,
		cmds:        make(chan command, 8),
		buf:         buf,
		shutdownAck: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	var open bool
	defer close(w.shutdownAck)

	for cmd := range w.cmds {
		switch cmd {
		case cmdStart:
			if open {
				continue // idempotent
			}
			w.mu.Lock()
			w.lastErr = nil
			w.mu.Unlock()

			rate, _, err := w.backend.Open(w.onFrame, w.onError)
			if err != nil {
				w.mu.Lock()
				w.lastErr = &StreamError{Why: err.Error(), IsDisconnection: isDisconnection(err.Error())}
				w.recording = false
				w.mu.Unlock()
				continue
			}
			if err := w.backend.Start(); err != nil {
				w.mu.Lock()
				w.lastErr = &StreamError{Why: err.Error(), IsDisconnection: isDisconnection(err.Error())}
				w.recording = false
				w.mu.Unlock()
				continue
			}
			w.mu.Lock()
			w.deviceRate = rate
			w.recording = true
			w.mu.Unlock()
			open = true

		case cmdStop:
			if !open {
				continue
			}
			w.backend.Stop()
			w.backend.Close()
			w.mu.Lock()
			w.recording = false
			w.mu.Unlock()
			open = false

		case cmdShutdown:
			if open {
				w.backend.Stop()
				w.backend.Close()
				open = false
			}
			return
		}
	}
}

// onFrame is the realtime audio-thread data callback: downmix then a
// single ring-buffer mutex acquisition. Must never block.
func (w *Worker) onFrame(frame []float32, channels int) {
	mono := frame
	if channels > 1 {
		mono = dsp.Downmix(frame, channels)
	}
	w.buf.Write(mono)
}

// onError is the realtime audio-thread error callback: publish into the
// error slot, never log or block here.
func (w *Worker) onError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	disc := isDisconnection(msg)
	w.lastErr = &StreamError{Why: msg, IsDisconnection: disc}
	if disc {
		w.recording = false
	}
}

func isDisconnection(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range []string{"disconnected", "device", "devicenotavailable", "lost", "invaliddevice"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Start issues Start to the worker and sleeps 50ms to let the stream
// come up before the caller observes IsRecording.
func (w *Worker) Start() {
	w.cmds <- cmdStart
	time.Sleep(50 * time.Millisecond)
}

// Stop issues Stop, sleeps 50ms to let the worker quiesce, then drains
// and returns the captured samples along with the discovered device
// rate.
func (w *Worker) Stop() ([]float32, int) {
	w.cmds <- cmdStop
	time.Sleep(50 * time.Millisecond)

	w.mu.Lock()
	rate := w.deviceRate
	w.mu.Unlock()

	return w.buf.Drain(), rate
}

// Shutdown stops the worker goroutine permanently.
func (w *Worker) Shutdown() {
	w.cmds <- cmdShutdown
	<-w.shutdownAck
}

// IsRecording reports whether the worker currently believes it is
// capturing.
func (w *Worker) IsRecording() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recording
}

// LastError returns and clears the published stream error, if any.
func (w *Worker) LastError() *StreamError {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.lastErr
	w.lastErr = nil
	return err
}

// DeviceRate returns the sample rate discovered at Open time.
func (w *Worker) DeviceRate() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deviceRate
}

// BufferCapacity computes the ring buffer capacity for a configured
// buffer duration at a given sample rate, applying the 60s floor.
func BufferCapacity(bufferDurationMs, sampleRate int) int {
	seconds := float64(bufferDurationMs) / 1000
	if seconds < minBufferSeconds {
		seconds = minBufferSeconds
	}
	return int(seconds * float64(sampleRate))
}
