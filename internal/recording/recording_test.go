package recording

import (
	"context"
	"errors"
	"testing"
	"time"

	"dictatord/internal/capture"
	"dictatord/internal/config"
	"dictatord/internal/event"
	"dictatord/internal/provider"
	"dictatord/internal/transcription"
)

type fakeCaptureBackend struct {
	openErr error
	onFrame func([]float32, int)
}

func (f *fakeCaptureBackend) Open(onFrame func([]float32, int), onError func(string)) (int, int, error) {
	if f.openErr != nil {
		return 0, 0, f.openErr
	}
	f.onFrame = onFrame
	return 16000, 1, nil
}
func (f *fakeCaptureBackend) Start() error { return nil }
func (f *fakeCaptureBackend) Stop() error  { return nil }
func (f *fakeCaptureBackend) Close() error { return nil }

type fakeTranscriber struct {
	calls int
	err   error
}

func (f *fakeTranscriber) ProcessRecording(ctx context.Context, samples []float32, deviceRate int, cfg config.Settings) (string, error) {
	f.calls++
	return "hello", f.err
}

func settingsFn(mode string) SettingsProvider {
	return func() config.Settings {
		s := config.Defaults()
		s.Recording.Mode = mode
		return s
	}
}

func newTestMachine(mode string, tr *fakeTranscriber) (*Machine, *fakeCaptureBackend) {
	backend := &fakeCaptureBackend{}
	m := New(event.New(), tr, settingsFn(mode), func() capture.Backend { return backend })
	return m, backend
}

func waitForKind(t *testing.T, m *Machine, want Kind) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Snapshot().Kind == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %v, got %v", want, m.Snapshot().Kind)
}

func TestStartEntersRecording(t *testing.T) {
	m, _ := newTestMachine(ModePushToTalk, &fakeTranscriber{})
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !m.IsRecording() {
		t.Error("expected IsRecording after Start")
	}
	m.Cancel()
}

func TestStartWhileRecordingFails(t *testing.T) {
	m, _ := newTestMachine(ModePushToTalk, &fakeTranscriber{})
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("expected second Start to fail from Recording state")
	}
	if !m.IsRecording() {
		t.Error("failed Start must not alter the machine")
	}
	m.Cancel()
}

func TestStartFailurePublishesError(t *testing.T) {
	backend := &fakeCaptureBackend{openErr: errors.New("device lost")}
	m := New(event.New(), &fakeTranscriber{}, settingsFn(ModePushToTalk), func() capture.Backend { return backend })

	if err := m.Start(); err == nil {
		t.Fatal("expected Start to fail when the backend cannot open")
	}
	if snap := m.Snapshot(); snap.Kind != KindFailed || snap.Message == "" {
		t.Errorf("state = %+v, want Failed with message", snap)
	}
}

func TestStopRunsPipelineAndReturnsToIdle(t *testing.T) {
	tr := &fakeTranscriber{}
	m, backend := newTestMachine(ModePushToTalk, tr)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	backend.onFrame(make([]float32, 3200), 1)

	m.Stop()
	waitForKind(t, m, KindIdle)
	if tr.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1", tr.calls)
	}
}

func TestStopTooShortReturnsToIdle(t *testing.T) {
	tr := &fakeTranscriber{err: transcription.TooShortError{}}
	m, _ := newTestMachine(ModePushToTalk, tr)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()

	// A too-short recording is benign: the machine must settle in Idle,
	// not Error, and be ready to record again.
	waitForKind(t, m, KindIdle)
	if err := m.Start(); err != nil {
		t.Errorf("Start after too-short recording: %v", err)
	}
	m.Cancel()
}

func TestStopProviderFailureEntersFailedState(t *testing.T) {
	tr := &fakeTranscriber{err: provider.FailedError{Why: "decode blew up"}}
	m, _ := newTestMachine(ModePushToTalk, tr)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()

	waitForKind(t, m, KindFailed)
	if snap := m.Snapshot(); snap.Message == "" {
		t.Error("expected failure message in state")
	}

	// Failed is a valid start state.
	if err := m.Start(); err != nil {
		t.Errorf("Start from Failed: %v", err)
	}
	m.Cancel()
}

func TestCancelDropsCaptureWithoutTranscribing(t *testing.T) {
	tr := &fakeTranscriber{}
	m, _ := newTestMachine(ModePushToTalk, tr)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Cancel()

	if m.Snapshot().Kind != KindIdle {
		t.Errorf("state = %v after Cancel, want Idle", m.Snapshot().Kind)
	}
	if tr.calls != 0 {
		t.Errorf("transcriber calls = %d after Cancel, want 0", tr.calls)
	}
}

func TestToggleFlipsBetweenRecordingAndProcessing(t *testing.T) {
	tr := &fakeTranscriber{}
	m, backend := newTestMachine(ModeToggle, tr)

	m.OnKeydown()
	if !m.IsRecording() {
		t.Fatal("first toggle press should start recording")
	}
	backend.onFrame(make([]float32, 3200), 1)

	m.OnKeyup() // no-op in toggle mode
	if !m.IsRecording() {
		t.Error("keyup must be ignored in toggle mode")
	}

	m.OnKeydown()
	waitForKind(t, m, KindIdle)
	if tr.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1", tr.calls)
	}
}

func TestPushToTalkKeyupStops(t *testing.T) {
	tr := &fakeTranscriber{}
	m, backend := newTestMachine(ModePushToTalk, tr)

	m.OnKeydown()
	if !m.IsRecording() {
		t.Fatal("keydown should start recording in push-to-talk mode")
	}
	backend.onFrame(make([]float32, 3200), 1)

	m.OnKeyup()
	waitForKind(t, m, KindIdle)
	if tr.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1", tr.calls)
	}
}
