// Package event implements a minimal typed pub/sub used to deliver the
// named UI-facing events to any subscriber without depending on a UI
// runtime.
package event

import "sync"

// Name identifies an event channel.
type Name string

const (
	RecordingStateChanged  Name = "recording:state-changed"
	RecordingProcessing    Name = "recording:processing"
	TranscriptionComplete  Name = "transcription:complete"
	TranscriptionError     Name = "transcription:error"
	ShowPopup              Name = "show:popup"
	HistoryUpdated         Name = "history:updated"
	ModelDownloadProgress  Name = "model-download-progress"
	ModelDownloadComplete  Name = "model-download-complete"
	ModelDownloadError     Name = "model-download-error"
	ModelDownloadCancelled Name = "model-download-cancelled"
	IndicatorProcessing    Name = "indicator:processing"
)

// Handler receives an event's payload. Payload shape is event-specific
// and documented alongside each Name constant's emitter.
type Handler func(payload any)

// Bus is a subscribe-by-name, dispatch-by-value pub/sub. Safe for
// concurrent use; handlers are invoked synchronously on the emitting
// goroutine, and no emitter runs on the realtime audio thread.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// Subscribe registers handler to be called on every Emit(name, ...).
// Returns an unsubscribe function.
func (b *Bus) Subscribe(name Name, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], handler)
	idx := len(b.handlers[name]) - 1

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.handlers[name]
		if idx < len(handlers) {
			handlers[idx] = nil
		}
	}
}

// Emit invokes every live subscriber of name with payload.
func (b *Bus) Emit(name Name, payload any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[name]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(payload)
		}
	}
}
