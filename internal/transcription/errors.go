package transcription

// TooShortError reports audio shorter than the minimum processable
// duration (1600 samples at 16kHz, 0.1s).
type TooShortError struct{}

func (TooShortError) Error() string { return "Recording too short" }

// NoSpeechError reports that VAD found no speech content worth
// transcribing.
type NoSpeechError struct{}

func (NoSpeechError) Error() string { return "No speech detected in recording" }
