// Package output implements the text injector: clipboard save/restore
// plus a synthesized paste keystroke, with focus-aware auto-paste so
// dictation never pastes into its own window.
package output

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"
)

const appName = "dictatord"

// Backend abstracts clipboard and keystroke injection so tests can
// inject a fake without driving real OS input.
type Backend interface {
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
	SendPaste() error
	FocusedAppName() string
}

// Injector sends transcribed text into the frontmost application.
type Injector struct {
	backend Backend
}

// New constructs an Injector.
func New(backend Backend) *Injector {
	return &Injector{backend: backend}
}

// ShouldAutoPaste reports whether the currently focused window belongs
// to a different application than this one; pasting into ourselves
// would be a no-op or overwrite the dictation UI.
func (i *Injector) ShouldAutoPaste() bool {
	return i.backend.FocusedAppName() != appName
}

// PasteText saves the current clipboard, stages text onto it, sends the
// platform paste combo, then restores the prior clipboard contents. If
// ShouldAutoPaste is false, the caller should instead call
// CopyToClipboard and surface a "paste manually" notification.
func (i *Injector) PasteText(text string) error {
	if text == "" {
		return nil
	}

	prior, err := i.backend.ReadClipboard()
	if err != nil {
		log.Warn("reading clipboard for restore failed", "component", "output", "error", err)
	}

	if err := i.backend.WriteClipboard(text); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)

	if err := i.backend.SendPaste(); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	if err := i.backend.WriteClipboard(prior); err != nil {
		log.Warn("restoring clipboard failed", "component", "output", "error", err)
	}
	return nil
}

// CopyToClipboard stages text onto the clipboard without pasting,
// leaving it for the user to paste manually.
func (i *Injector) CopyToClipboard(text string) error {
	return i.backend.WriteClipboard(text)
}

// Send is the high-level entry point: it pastes when ShouldAutoPaste,
// otherwise copies only and invokes onManualPaste so the caller can
// emit the show:popup event.
func (i *Injector) Send(text string, onManualPaste func()) error {
	if text == "" {
		return nil
	}
	if i.ShouldAutoPaste() {
		return i.PasteText(text)
	}
	if err := i.CopyToClipboard(text); err != nil {
		return err
	}
	if onManualPaste != nil {
		onManualPaste()
	}
	return nil
}

// pasteModifier returns the OS-appropriate paste key combo modifier.
func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "control"
}
