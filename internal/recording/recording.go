// Package recording implements the recording state machine: the
// Idle/Recording/Processing/Failed lifecycle that ties the hotkey
// bridge, the audio capture worker, and the transcription service
// together, in explicit push-to-talk and toggle modes.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dictatord/internal/capture"
	"dictatord/internal/config"
	"dictatord/internal/event"
	"dictatord/internal/ring"
	"dictatord/internal/transcription"
)

// Mode selects how the bound hotkey drives recording.
const (
	ModePushToTalk = "push_to_talk"
	ModeToggle     = "toggle"
)

// preOpenBufferRateHint sizes the ring buffer before the capture
// backend's Open reports the device's actual sample rate. Any
// reasonable consumer-audio rate works here since BufferCapacity's 60s
// floor and the configured max duration dominate the sizing; 48kHz
// matches the common default input device rate.
const preOpenBufferRateHint = 48000

// Kind identifies which branch of the state machine is active.
type Kind int

const (
	KindIdle Kind = iota
	KindRecording
	KindProcessing
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindRecording:
		return "recording"
	case KindProcessing:
		return "processing"
	case KindFailed:
		return "error"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of the machine.
type State struct {
	Kind      Kind
	StartedAt time.Time
	Message   string // set only when Kind == KindFailed
}

// Transcriber is the subset of *transcription.Service the machine
// depends on. An interface keeps tests from needing a real model file.
type Transcriber interface {
	ProcessRecording(ctx context.Context, samples []float32, deviceRate int, cfg config.Settings) (string, error)
}

// BackendFactory builds a fresh capture backend for each recording
// session, mirroring the per-session "construct an AudioCapture"
// sequence rather than reusing one long-lived stream handle.
type BackendFactory func() capture.Backend

// SettingsProvider returns the current persisted settings.
type SettingsProvider func() config.Settings

// Machine owns the current recording state and the active capture
// worker, if any.
type Machine struct {
	mu     sync.Mutex
	state  State
	worker *capture.Worker

	bus            *event.Bus
	transcribe     Transcriber
	settingsFn     SettingsProvider
	backendFactory BackendFactory
}

// New constructs a Machine in the Idle state.
func New(bus *event.Bus, transcribe Transcriber, settingsFn SettingsProvider, backendFactory BackendFactory) *Machine {
	return &Machine{
		bus:            bus,
		transcribe:     transcribe,
		settingsFn:     settingsFn,
		backendFactory: backendFactory,
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsRecording reports whether the machine is currently capturing audio.
func (m *Machine) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Kind == KindRecording
}

// Start enters Recording from Idle or Failed. Any other current state
// fails the operation with an explanatory error without altering the
// machine.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.state.Kind != KindIdle && m.state.Kind != KindFailed {
		cur := m.state.Kind
		m.mu.Unlock()
		return fmt.Errorf("recording: cannot start from state %q", cur)
	}

	cfg := m.settingsFn()
	bufCap := capture.BufferCapacity(cfg.Recording.MaxDurationMs, preOpenBufferRateHint)
	buf := ring.New(bufCap)
	backend := m.backendFactory()
	w := capture.New(backend, buf)
	w.Start()

	if !w.IsRecording() {
		msg := "failed to start audio capture"
		if lastErr := w.LastError(); lastErr != nil {
			msg = lastErr.Why
		}
		w.Shutdown()
		m.state = State{Kind: KindFailed, Message: msg}
		snap := m.state
		m.mu.Unlock()
		m.bus.Emit(event.RecordingStateChanged, snap)
		return errors.New(msg)
	}

	m.worker = w
	m.state = State{Kind: KindRecording, StartedAt: time.Now()}
	snap := m.state
	m.mu.Unlock()
	m.bus.Emit(event.RecordingStateChanged, snap)
	return nil
}

// Stop enters Processing from Recording, drains the captured audio,
// and hands it to the transcription service on a background goroutine
// so the caller (typically a hotkey listener) is not blocked for the
// duration of transcription. Any other current state is a no-op.
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.state.Kind != KindRecording {
		m.mu.Unlock()
		return
	}
	w := m.worker
	m.worker = nil
	m.state = State{Kind: KindProcessing}
	snap := m.state
	m.mu.Unlock()

	m.bus.Emit(event.RecordingProcessing, nil)
	m.bus.Emit(event.IndicatorProcessing, nil)
	m.bus.Emit(event.RecordingStateChanged, snap)

	samples, deviceRate := w.Stop()
	cfg := m.settingsFn()
	go m.finishProcessing(w, samples, deviceRate, cfg)
}

func (m *Machine) finishProcessing(w *capture.Worker, samples []float32, deviceRate int, cfg config.Settings) {
	w.Shutdown()

	_, err := m.transcribe.ProcessRecording(context.Background(), samples, deviceRate, cfg)

	m.mu.Lock()
	switch {
	case err == nil, isBenignOutcome(err):
		// A too-short or speech-free recording is an expected user
		// outcome, not a machine fault: the service has already surfaced
		// the message, and the machine is ready to record again.
		m.state = State{Kind: KindIdle}
	default:
		m.state = State{Kind: KindFailed, Message: err.Error()}
	}
	snap := m.state
	m.mu.Unlock()

	m.bus.Emit(event.RecordingStateChanged, snap)
}

func isBenignOutcome(err error) bool {
	var tooShort transcription.TooShortError
	var noSpeech transcription.NoSpeechError
	return errors.As(err, &tooShort) || errors.As(err, &noSpeech)
}

// Cancel drops any in-flight capture without transcribing and
// force-resets the machine to Idle, regardless of current state.
func (m *Machine) Cancel() {
	m.mu.Lock()
	w := m.worker
	m.worker = nil
	wasRecording := m.state.Kind == KindRecording
	m.state = State{Kind: KindIdle}
	m.mu.Unlock()

	if wasRecording && w != nil {
		w.Stop()
		w.Shutdown()
	}
	m.bus.Emit(event.RecordingStateChanged, m.Snapshot())
}

// Toggle flips Idle/Failed->Recording or Recording->Processing.
// Presses that arrive while Processing are ignored.
func (m *Machine) Toggle() {
	m.mu.Lock()
	kind := m.state.Kind
	m.mu.Unlock()

	switch kind {
	case KindIdle, KindFailed:
		_ = m.Start()
	case KindRecording:
		m.Stop()
	case KindProcessing:
		// ignored: a press during processing has no effect
	}
}

// OnKeydown is wired to the hotkey bridge's key-down edge. In toggle
// mode it flips state; in push-to-talk mode it starts recording.
func (m *Machine) OnKeydown() {
	if m.settingsFn().Recording.Mode == ModeToggle {
		m.Toggle()
		return
	}
	_ = m.Start()
}

// OnKeyup is wired to the hotkey bridge's key-up edge. It is a no-op
// in toggle mode; in push-to-talk mode it stops recording.
func (m *Machine) OnKeyup() {
	if m.settingsFn().Recording.Mode == ModeToggle {
		return
	}
	m.Stop()
}
