package transcription

import (
	"context"
	"testing"

	"dictatord/internal/config"
	"dictatord/internal/event"
	"dictatord/internal/history"
	"dictatord/internal/orchestrator"
	"dictatord/internal/output"
	"dictatord/internal/provider"
)

type fakeProvider struct {
	name   string
	result provider.Result
	err    error
}

func (f *fakeProvider) Transcribe(ctx context.Context, audio []float32, cfg provider.Config) (provider.Result, error) {
	return f.result, f.err
}
func (f *fakeProvider) Name() string                   { return f.name }
func (f *fakeProvider) IsAvailable() bool              { return true }
func (f *fakeProvider) CostPerMinute() (float64, bool) { return 0, false }

type fakeOutputBackend struct{ sent string }

func (f *fakeOutputBackend) ReadClipboard() (string, error) { return "", nil }
func (f *fakeOutputBackend) WriteClipboard(text string) error {
	f.sent = text
	return nil
}
func (f *fakeOutputBackend) SendPaste() error       { return nil }
func (f *fakeOutputBackend) FocusedAppName() string { return "other" }

func newTestService(t *testing.T, primaryResult provider.Result, primaryErr error) (*Service, *history.Store, *fakeOutputBackend) {
	t.Helper()
	hist, err := history.Open(t.TempDir())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	fb := &fakeOutputBackend{}
	out := output.New(fb)
	bus := event.New()

	s := newWithProviderFactory(bus, hist, out, func(config.Transcription) (*orchestrator.Orchestrator, error) {
		return orchestrator.New(&fakeProvider{name: "local", result: primaryResult, err: primaryErr}), nil
	})
	return s, hist, fb
}

func settingsWithoutVAD() config.Settings {
	s := config.Defaults()
	s.Audio.VAD.Enabled = false
	return s
}

func silentSamples(n int) []float32 {
	return make([]float32, n)
}

// TestProcessRecordingRejectsTooShort covers the 1600-sample precondition.
func TestProcessRecordingRejectsTooShort(t *testing.T) {
	s, _, _ := newTestService(t, provider.Result{Text: "hi"}, nil)
	_, err := s.ProcessRecording(context.Background(), silentSamples(100), 16000, settingsWithoutVAD())
	if _, ok := err.(TooShortError); !ok {
		t.Fatalf("expected TooShortError, got %v", err)
	}
}

func TestProcessRecordingSuccessWritesHistoryAndStatus(t *testing.T) {
	s, hist, fb := newTestService(t, provider.Result{Text: "hello world", Provider: "local"}, nil)

	text, err := s.ProcessRecording(context.Background(), silentSamples(16000), 16000, settingsWithoutVAD())
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}

	if hist.Len() != 1 {
		t.Errorf("history Len() = %d, want 1", hist.Len())
	}
	if fb.sent != "hello world" {
		t.Errorf("output sent = %q, want %q", fb.sent, "hello world")
	}

	status := s.Status()
	if status.LastResult != "hello world" || status.IsTranscribing {
		t.Errorf("status = %+v, unexpected", status)
	}

	metrics := s.Metrics()
	if len(metrics) != 1 || metrics[0].ResultChars != len("hello world") {
		t.Errorf("metrics = %+v, unexpected", metrics)
	}
}

func TestProcessRecordingEmptyTextSkipsHistoryAndOutput(t *testing.T) {
	s, hist, fb := newTestService(t, provider.Result{Text: "", Provider: "local"}, nil)

	_, err := s.ProcessRecording(context.Background(), silentSamples(16000), 16000, settingsWithoutVAD())
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}
	if hist.Len() != 0 {
		t.Errorf("history Len() = %d, want 0 for empty transcription", hist.Len())
	}
	if fb.sent != "" {
		t.Errorf("output sent = %q, want empty", fb.sent)
	}
}

func TestProcessRecordingPropagatesProviderError(t *testing.T) {
	wantErr := provider.FailedError{Why: "boom"}
	s, _, _ := newTestService(t, provider.Result{}, wantErr)

	_, err := s.ProcessRecording(context.Background(), silentSamples(16000), 16000, settingsWithoutVAD())
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	status := s.Status()
	if status.LastError == "" {
		t.Error("expected LastError to be set after failure")
	}
}

func TestProcessRecordingResamplesNonNativeRate(t *testing.T) {
	s, _, _ := newTestService(t, provider.Result{Text: "ok", Provider: "local"}, nil)

	// 8kHz device rate, 1 second of silence -> resampled to 16kHz, above
	// the minSamples floor.
	_, err := s.ProcessRecording(context.Background(), silentSamples(8000), 8000, settingsWithoutVAD())
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}
}
