// Command dictatord is the voice-dictation daemon: it registers the
// global record/cancel hotkeys, captures microphone audio while the
// record key is engaged, transcribes it through the configured provider,
// and pastes the text into the focused application.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"

	"dictatord/internal/capture"
	"dictatord/internal/config"
	"dictatord/internal/event"
	"dictatord/internal/history"
	"dictatord/internal/hotkey"
	"dictatord/internal/models"
	"dictatord/internal/output"
	"dictatord/internal/provider"
	"dictatord/internal/recording"
	"dictatord/internal/secrets"
	"dictatord/internal/transcription"
)

const notificationPreviewLen = 50

func main() {
	dataDir, err := config.DefaultDir()
	if err != nil {
		log.Fatal("resolving config dir", "error", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal("creating config dir", "dir", dataDir, "error", err)
	}

	logFile := initLogging(dataDir)
	if logFile != nil {
		defer logFile.Close()
	}

	cfgStore := config.New(dataDir)
	settings := newSettingsSnapshot(cfgStore)

	bus := event.New()
	subscribeNotifications(bus)

	hist, err := history.Open(dataDir)
	if err != nil {
		log.Fatal("opening history store", "dir", dataDir, "error", err)
	}

	downloader := models.New(filepath.Join(dataDir, "models"), bus)
	injector := output.New(output.NewRobotgoBackend())
	keyring := secrets.NewKeyring()

	svc := transcription.New(bus, hist, injector, keyring, downloader.ModelPath)

	machine := recording.New(bus, svc, settings.get, func() capture.Backend {
		return capture.NewPortAudioBackend()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hotkeys register last so no callback can fire into a half-built
	// graph.
	recordKey := hotkey.New()
	if err := recordKey.Start(ctx, settings.get().Shortcuts.Record, machine.OnKeydown, machine.OnKeyup); err != nil {
		log.Fatal("registering record hotkey", "combo", settings.get().Shortcuts.Record, "error", err)
	}
	cancelKey := hotkey.New()
	if err := cancelKey.Start(ctx, settings.get().Shortcuts.Cancel, machine.Cancel, nil); err != nil {
		log.Warn("registering cancel hotkey failed, continuing without it",
			"component", "hotkey", "combo", settings.get().Shortcuts.Cancel, "error", err)
	}

	log.Info("ready", "record", settings.get().Shortcuts.Record, "cancel", settings.get().Shortcuts.Cancel)
	<-ctx.Done()

	log.Info("shutting down")
	cancelKey.Stop()
	recordKey.Stop()
	machine.Cancel()
	svc.Close()
}

// initLogging mirrors app logs to {dataDir}/dictatord.log alongside
// stderr.
func initLogging(dataDir string) *os.File {
	path := filepath.Join(dataDir, "dictatord.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn("opening log file failed, logging to stderr only", "path", path, "error", err)
		return nil
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetReportTimestamp(true)
	return f
}

// settingsSnapshot hands the pipeline a stable settings value without
// re-reading disk on every hotkey edge.
type settingsSnapshot struct {
	mu  sync.RWMutex
	cur config.Settings
}

func newSettingsSnapshot(store *config.Store) *settingsSnapshot {
	return &settingsSnapshot{cur: store.Load()}
}

func (s *settingsSnapshot) get() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// subscribeNotifications stands in for the out-of-scope UI collaborator:
// every user-visible event is surfaced as a structured log line.
func subscribeNotifications(bus *event.Bus) {
	bus.Subscribe(event.TranscriptionComplete, func(payload any) {
		log.Info("transcription complete", "component", "notify", "preview", preview(payload))
	})
	bus.Subscribe(event.TranscriptionError, func(payload any) {
		log.Error("transcription failed", "component", "notify", "error", payload)
	})
	bus.Subscribe(event.RecordingStateChanged, func(payload any) {
		log.Info("recording state changed", "component", "notify", "state", payload)
	})
	bus.Subscribe(event.ShowPopup, func(payload any) {
		log.Info("copied to clipboard, paste manually", "component", "notify")
	})
	bus.Subscribe(event.ModelDownloadProgress, func(payload any) {
		if p, ok := payload.(models.Progress); ok {
			log.Info("model download progress", "component", "notify",
				"name", p.Name, "pct", int(p.Percentage), "bps", p.SpeedBps)
		}
	})
	bus.Subscribe(event.ModelDownloadComplete, func(payload any) {
		log.Info("model download complete", "component", "notify", "name", payload)
	})
	bus.Subscribe(event.ModelDownloadError, func(payload any) {
		log.Error("model download failed", "component", "notify", "error", payload)
	})
	bus.Subscribe(event.ModelDownloadCancelled, func(payload any) {
		log.Info("model download cancelled", "component", "notify", "name", payload)
	})
}

// preview extracts the notification preview text from a
// transcription:complete payload, truncated for display; an empty
// transcription is reported explicitly.
func preview(payload any) string {
	text := ""
	switch v := payload.(type) {
	case provider.Result:
		text = v.Text
	case string:
		text = v
	}
	if text == "" {
		return "(No speech detected)"
	}
	if r := []rune(text); len(r) > notificationPreviewLen {
		return string(r[:notificationPreviewLen]) + "…"
	}
	return text
}
