package capture

import "errors"

// ErrMicPermissionDenied is returned when the OS has denied microphone
// access.
var ErrMicPermissionDenied = errors.New("capture: microphone access denied")

// StreamError wraps a failure publishing from the realtime audio
// thread's error callback.
type StreamError struct {
	Why             string
	IsDisconnection bool
}

func (e StreamError) Error() string { return "capture: stream error: " + e.Why }
