// Package config implements the persisted settings snapshot: atomic
// write (temp file + rename), default-fill for missing fields, and
// corrupt-file recovery.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Recording holds the recording.* settings.
type Recording struct {
	Mode           string `json:"mode"` // "push_to_talk" or "toggle"
	MaxDurationMs  int    `json:"max_duration"`
	SilenceTimeout int    `json:"silence_timeout"`
}

// Shortcuts holds the shortcuts.* settings.
type Shortcuts struct {
	Record   string `json:"record"`
	Cancel   string `json:"cancel"`
	Settings string `json:"settings"`
}

// LocalTranscription holds transcription.local.*.
type LocalTranscription struct {
	Model      string `json:"model"`
	Threads    int    `json:"threads"`
	GPUEnabled bool   `json:"gpu_enabled"`
	GPUBackend string `json:"gpu_backend"`
}

// GroqTranscription holds transcription.groq.*.
type GroqTranscription struct {
	APIKeyConfigured bool   `json:"api_key_configured"`
	Model            string `json:"model"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
}

// Transcription holds the transcription.* settings.
type Transcription struct {
	Provider string             `json:"provider"` // "local" or "groq"
	Language string             `json:"language"`
	Local    LocalTranscription `json:"local"`
	Groq     GroqTranscription  `json:"groq"`
}

// VAD holds audio.vad.*.
type VAD struct {
	Enabled bool `json:"enabled"`
	// Aggressiveness 0-3 selects the frame classifier's mode; 4 selects
	// the RMS-threshold pseudo-mode for environments without the
	// classifier library.
	Aggressiveness      int `json:"aggressiveness"`
	MinSpeechDurationMs int `json:"min_speech_duration_ms"`
	PaddingMs           int `json:"padding_ms"`
}

// Audio holds the audio.* settings.
type Audio struct {
	InputDevice string `json:"input_device"`
	VAD         VAD    `json:"vad"`
}

// Output holds the output.* settings.
type Output struct {
	AutoCapitalize  bool `json:"auto_capitalize"`
	AutoPunctuation bool `json:"auto_punctuation"`
	PasteDelayMs    int  `json:"paste_delay"`
}

// UI holds the ui.* settings.
type UI struct {
	ShowIndicator     bool   `json:"show_indicator"`
	IndicatorPosition string `json:"indicator_position"`
	Theme             string `json:"theme"`
	StartMinimized    bool   `json:"start_minimized"`
	MinimizeToTray    bool   `json:"minimize_to_tray"`
}

// Settings is the full persisted settings snapshot.
type Settings struct {
	Recording     Recording     `json:"recording"`
	Shortcuts     Shortcuts     `json:"shortcuts"`
	Transcription Transcription `json:"transcription"`
	Audio         Audio         `json:"audio"`
	Output        Output        `json:"output"`
	UI            UI            `json:"ui"`
}

// Defaults returns factory settings.
func Defaults() Settings {
	return Settings{
		Recording: Recording{Mode: "push_to_talk", MaxDurationMs: 60_000, SilenceTimeout: 2_000},
		Shortcuts: Shortcuts{Record: "ctrl+space", Cancel: "escape", Settings: "ctrl+comma"},
		Transcription: Transcription{
			Provider: "local",
			Language: "en",
			Local:    LocalTranscription{Model: "base", Threads: 0, GPUEnabled: false, GPUBackend: "None"},
			Groq:     GroqTranscription{APIKeyConfigured: false, Model: "whisper-large-v3", TimeoutSeconds: 30},
		},
		Audio: Audio{
			InputDevice: "",
			VAD:         VAD{Enabled: true, Aggressiveness: 2, MinSpeechDurationMs: 250, PaddingMs: 150},
		},
		Output: Output{AutoCapitalize: true, AutoPunctuation: false, PasteDelayMs: 10},
		UI: UI{
			ShowIndicator:     true,
			IndicatorPosition: "bottom-right",
			Theme:             "system",
			StartMinimized:    false,
			MinimizeToTray:    true,
		},
	}
}

// Store loads and saves the settings snapshot.
type Store struct {
	path string
}

// DefaultDir returns {os.UserConfigDir()}/dictatord.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dictatord"), nil
}

// New constructs a Store pointing at {dir}/config.json.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, "config.json")}
}

// Load reads settings from disk, filling any zero-value fields with
// defaults. A missing file yields pure defaults; a corrupt file logs a
// warning, resets to defaults, and persists the repaired defaults.
func (s *Store) Load() Settings {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Defaults()
	}
	if err != nil {
		log.Warn("read failed, using defaults", "component", "config", "error", err)
		return Defaults()
	}

	var got Settings
	if err := json.Unmarshal(data, &got); err != nil {
		log.Warn("corrupt file, resetting to defaults", "component", "config", "error", err)
		defaults := Defaults()
		_ = s.Save(defaults)
		return defaults
	}

	return fillDefaults(got)
}

// Save writes settings atomically (temp file then rename).
func (s *Store) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// fillDefaults overlays zero-value leaf fields with factory defaults.
// The fill is shallow: explicit false/0 for boolean and numeric toggles
// is indistinguishable from unset and stays as-is unless listed here.
func fillDefaults(got Settings) Settings {
	d := Defaults()

	if got.Recording.Mode == "" {
		got.Recording.Mode = d.Recording.Mode
	}
	if got.Recording.MaxDurationMs == 0 {
		got.Recording.MaxDurationMs = d.Recording.MaxDurationMs
	}
	if got.Recording.SilenceTimeout == 0 {
		got.Recording.SilenceTimeout = d.Recording.SilenceTimeout
	}

	if got.Shortcuts.Record == "" {
		got.Shortcuts.Record = d.Shortcuts.Record
	}
	if got.Shortcuts.Cancel == "" {
		got.Shortcuts.Cancel = d.Shortcuts.Cancel
	}
	if got.Shortcuts.Settings == "" {
		got.Shortcuts.Settings = d.Shortcuts.Settings
	}

	if got.Transcription.Provider == "" {
		got.Transcription.Provider = d.Transcription.Provider
	}
	if got.Transcription.Language == "" {
		got.Transcription.Language = d.Transcription.Language
	}
	if got.Transcription.Local.Model == "" {
		got.Transcription.Local.Model = d.Transcription.Local.Model
	}
	if got.Transcription.Local.GPUBackend == "" {
		got.Transcription.Local.GPUBackend = d.Transcription.Local.GPUBackend
	}
	if got.Transcription.Groq.Model == "" {
		got.Transcription.Groq.Model = d.Transcription.Groq.Model
	}
	if got.Transcription.Groq.TimeoutSeconds == 0 {
		got.Transcription.Groq.TimeoutSeconds = d.Transcription.Groq.TimeoutSeconds
	}

	if got.Audio.VAD.Aggressiveness == 0 {
		got.Audio.VAD.Aggressiveness = d.Audio.VAD.Aggressiveness
	}
	if got.Audio.VAD.MinSpeechDurationMs == 0 {
		got.Audio.VAD.MinSpeechDurationMs = d.Audio.VAD.MinSpeechDurationMs
	}
	if got.Audio.VAD.PaddingMs == 0 {
		got.Audio.VAD.PaddingMs = d.Audio.VAD.PaddingMs
	}

	if got.Output.PasteDelayMs == 0 {
		got.Output.PasteDelayMs = d.Output.PasteDelayMs
	}

	if got.UI.IndicatorPosition == "" {
		got.UI.IndicatorPosition = d.UI.IndicatorPosition
	}
	if got.UI.Theme == "" {
		got.UI.Theme = d.UI.Theme
	}

	return got
}
