// Package hotkey implements the global-hotkey bridge: lazy CGo-backed
// registration, combo parsing, display formatting, and key-down/key-up
// edge dispatch so the recording state machine can drive push-to-talk
// as well as toggle mode.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.design/x/hotkey"
)

// ErrConflict is returned when the hotkey is already registered by
// another application.
var ErrConflict = errors.New("hotkey: key combination already registered by another application")

// ErrInvalid is returned when the hotkey string cannot be parsed.
var ErrInvalid = errors.New("hotkey: invalid key combination")

// Backend abstracts the real hotkey implementation so tests can use a
// mock without registering real OS-level shortcuts.
type Backend interface {
	Register() error
	Unregister() error
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// realBackend wraps golang.design/x/hotkey for production use. The
// hotkey.Hotkey is created lazily in Register() to avoid spawning CGo
// goroutines at construction time, which would leak into unit tests.
type realBackend struct {
	hk        *hotkey.Hotkey
	mods      []hotkey.Modifier
	key       hotkey.Key
	downCh    chan struct{}
	upCh      chan struct{}
	closeOnce sync.Once
}

func newRealBackendFromCombo(combo string) (*realBackend, error) {
	mods, key, err := parseCombo(combo)
	if err != nil {
		return nil, err
	}
	return &realBackend{mods: mods, key: key}, nil
}

func (r *realBackend) Register() error {
	r.hk = hotkey.New(r.mods, r.key)
	if err := r.hk.Register(); err != nil {
		_ = r.hk.Unregister()
		r.hk = nil
		return ErrConflict
	}

	r.downCh = make(chan struct{}, 4)
	r.upCh = make(chan struct{}, 4)
	down := r.hk.Keydown()
	up := r.hk.Keyup()

	go func() {
		for down != nil || up != nil {
			select {
			case _, ok := <-down:
				if !ok {
					down = nil
					continue
				}
				select {
				case r.downCh <- struct{}{}:
				default:
				}
			case _, ok := <-up:
				if !ok {
					up = nil
					continue
				}
				select {
				case r.upCh <- struct{}{}:
				default:
				}
			}
		}
		r.closeOnce.Do(func() {
			close(r.downCh)
			close(r.upCh)
		})
	}()
	return nil
}

func (r *realBackend) Unregister() error {
	if r.hk == nil {
		return nil
	}
	return r.hk.Unregister()
}

func (r *realBackend) Keydown() <-chan struct{} { return r.downCh }
func (r *realBackend) Keyup() <-chan struct{}   { return r.upCh }

// Bridge manages global hotkey registration and dispatches key-down and
// key-up edges to the recording state machine.
type Bridge struct {
	mu             sync.Mutex
	backend        Backend
	combo          string
	registered     atomic.Bool
	shuttingDown   atomic.Bool
	doneCh         chan struct{}
	parentCtx      context.Context
	cancel         context.CancelFunc
	onKeydown      func()
	onKeyup        func()
	backendFactory func(string) (Backend, error)
}

// New constructs a Bridge backed by the real golang.design/x/hotkey API.
func New() *Bridge {
	return &Bridge{
		combo: "ctrl+space",
		backendFactory: func(c string) (Backend, error) {
			return newRealBackendFromCombo(c)
		},
	}
}

// newWithBackend constructs a Bridge with an injectable backend (tests
// only).
func newWithBackend(b Backend) *Bridge {
	return &Bridge{
		backend: b,
		combo:   "ctrl+space",
		backendFactory: func(c string) (Backend, error) {
			if _, _, err := parseCombo(c); err != nil {
				return nil, err
			}
			return b, nil
		},
	}
}

// Start registers the hotkey and launches a listener goroutine invoking
// onKeydown/onKeyup on each edge. The goroutine exits when ctx is
// cancelled. Returns ErrConflict if the key is taken by another
// application.
func (b *Bridge) Start(ctx context.Context, combo string, onKeydown, onKeyup func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if (combo != "" && combo != b.combo) || b.backend == nil {
		effective := combo
		if effective == "" {
			effective = b.combo
		}
		backend, err := b.backendFactory(effective)
		if err != nil {
			return err
		}
		b.backend = backend
		b.combo = effective
	}

	if err := b.backend.Register(); err != nil {
		return err
	}
	b.registered.Store(true)
	b.onKeydown = onKeydown
	b.onKeyup = onKeyup
	b.parentCtx = ctx
	log.Info("hotkey registered", "component", "hotkey", "combo", b.combo)

	listenCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	curBackend := b.backend
	curCombo := b.combo
	down := curBackend.Keydown()
	up := curBackend.Keyup()
	doneCh := make(chan struct{})
	b.doneCh = doneCh

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("recovered panic during listener cleanup", "component", "hotkey", "panic", r)
			}
			if !b.shuttingDown.Load() {
				curBackend.Unregister()
			}
			b.registered.Store(false)
			log.Info("hotkey unregistered", "component", "hotkey", "combo", curCombo)
			close(doneCh)
		}()
		for {
			select {
			case <-listenCtx.Done():
				return
			case _, ok := <-down:
				if !ok {
					return
				}
				if onKeydown != nil {
					onKeydown()
				}
			case _, ok := <-up:
				if !ok {
					return
				}
				if onKeyup != nil {
					onKeyup()
				}
			}
		}
	}()
	return nil
}

// Reregister swaps to a new hotkey combo at runtime without restarting
// the process. On any error the original hotkey stays registered.
func (b *Bridge) Reregister(newCombo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	newBackend, err := b.backendFactory(newCombo)
	if err != nil {
		return err
	}
	if err := newBackend.Register(); err != nil {
		return err
	}

	oldCombo := b.combo
	if b.cancel != nil {
		b.cancel()
	}

	b.backend = newBackend
	b.combo = newCombo
	b.registered.Store(true)
	log.Info("hotkey reregistered", "component", "hotkey", "from", oldCombo, "to", newCombo)

	parent := b.parentCtx
	if parent == nil {
		parent = context.Background()
	}
	listenCtx, cancel := context.WithCancel(parent)
	b.cancel = cancel
	onDown, onUp := b.onKeydown, b.onKeyup
	newDoneCh := make(chan struct{})
	b.doneCh = newDoneCh
	down := newBackend.Keydown()
	up := newBackend.Keyup()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("recovered panic during listener cleanup", "component", "hotkey", "panic", r)
			}
			if !b.shuttingDown.Load() {
				newBackend.Unregister()
			}
			b.registered.Store(false)
			log.Info("hotkey unregistered", "component", "hotkey", "combo", newCombo)
			close(newDoneCh)
		}()
		for {
			select {
			case <-listenCtx.Done():
				return
			case _, ok := <-down:
				if !ok {
					return
				}
				if onDown != nil {
					onDown()
				}
			case _, ok := <-up:
				if !ok {
					return
				}
				if onUp != nil {
					onUp()
				}
			}
		}
	}()
	return nil
}

// Stop signals shutdown, unregisters the active backend while the OS
// event loop is still alive, then waits up to 200ms for the listener
// goroutine to exit.
func (b *Bridge) Stop() {
	b.shuttingDown.Store(true)

	b.mu.Lock()
	backend := b.backend
	doneCh := b.doneCh
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	if backend != nil {
		if err := backend.Unregister(); err != nil {
			log.Warn("Unregister in Stop returned error", "component", "hotkey", "error", err)
		}
	}

	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(200 * time.Millisecond):
			log.Warn("Stop timed out waiting for listener to exit", "component", "hotkey")
		}
	}
}

// IsRegistered reports whether the hotkey is currently registered.
func (b *Bridge) IsRegistered() bool { return b.registered.Load() }

// Combo returns the currently active hotkey combo string.
func (b *Bridge) Combo() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.combo
}

var modMap = map[string]hotkey.Modifier{
	"ctrl": hotkey.ModCtrl, "control": hotkey.ModCtrl,
	"option": hotkey.ModOption, "alt": hotkey.ModOption,
	"shift":   hotkey.ModShift,
	"cmd":     hotkey.ModCmd, "command": hotkey.ModCmd,
}

var keyMap = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "tab": hotkey.KeyTab,
	"return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

func parseCombo(combo string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) < 2 {
		return nil, 0, fmt.Errorf("%w: %q (need at least one modifier)", ErrInvalid, combo)
	}
	keyPart := parts[len(parts)-1]
	modParts := parts[:len(parts)-1]

	key, ok := keyMap[keyPart]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown key %q", ErrInvalid, keyPart)
	}

	var mods []hotkey.Modifier
	seen := map[string]bool{}
	for _, m := range modParts {
		if seen[m] {
			continue
		}
		seen[m] = true
		mod, ok := modMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown modifier %q", ErrInvalid, m)
		}
		mods = append(mods, mod)
	}
	if len(mods) == 0 {
		return nil, 0, fmt.Errorf("%w: no valid modifier in %q", ErrInvalid, combo)
	}
	return mods, key, nil
}

// FormatCombo converts a combo string to a user-friendly display string,
// e.g. "ctrl+space" -> "^Space".
func FormatCombo(combo string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) < 2 {
		return combo
	}
	modSymbols := map[string]string{
		"ctrl": "^", "control": "^",
		"option": "~", "alt": "~",
		"shift": "+",
		"cmd":   "@", "command": "@",
	}
	keyDisplay := map[string]string{
		"space": "Space", "tab": "Tab", "return": "Return", "enter": "Return",
	}

	var out strings.Builder
	for _, p := range parts[:len(parts)-1] {
		if s, ok := modSymbols[p]; ok {
			out.WriteString(s)
		}
	}
	key := parts[len(parts)-1]
	if d, ok := keyDisplay[key]; ok {
		out.WriteString(d)
	} else {
		out.WriteString(strings.ToUpper(key))
	}
	return out.String()
}
