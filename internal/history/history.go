// Package history implements the bounded, newest-first transcription
// history with correlated WAV audio artifacts and path-traversal-safe
// audio access.
package history

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// MaxEntries is the bound on the in-memory deque.
const MaxEntries = 100

// Entry mirrors the HistoryEntry data model.
type Entry struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"` // ISO-8601 UTC, second precision
	DurationMs int64  `json:"duration_ms"`
	Provider   string `json:"provider"`
	Language   string `json:"language,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
}

type fileShape struct {
	Entries []Entry `json:"entries"`
}

// Store is the bounded, newest-first, crash-tolerant history deque.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry // index 0 is newest
	dataDir  string
	filePath string
	audioDir string
}

// Open loads (or initializes) a Store rooted at dataDir, with
// history.json and a sibling audio/ directory. A corrupted, truncated,
// missing, empty, or wrong-shape file yields an empty history and a
// logged warning rather than an error.
func Open(dataDir string) (*Store, error) {
	audioDir := filepath.Join(dataDir, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		dataDir:  dataDir,
		filePath: filepath.Join(dataDir, "history.json"),
		audioDir: audioDir,
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("reading file failed, starting empty", "component", "history", "error", err)
		}
		return
	}
	if len(data) == 0 {
		return
	}

	var shape fileShape
	if err := json.Unmarshal(data, &shape); err != nil {
		log.Warn("corrupt file, starting empty", "component", "history", "error", err)
		return
	}
	s.entries = shape.Entries
}

func (s *Store) save() {
	shape := fileShape{Entries: s.entries}
	data, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		log.Warn("marshal failed", "component", "history", "error", err)
		return
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil {
		log.Warn("write failed", "component", "history", "error", err)
	}
}

// NewEntry builds an Entry with a fresh UUID-v4 id and the current UTC
// timestamp at second precision.
func NewEntry(text string, durationMs int64, providerName, language string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Text:       text,
		Timestamp:  time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		DurationMs: durationMs,
		Provider:   providerName,
		Language:   language,
	}
}

// Add evicts from the back while len >= MaxEntries, then pushes entry to
// the front. If an evicted entry had an audio artifact, the artifact
// file is removed.
func (s *Store) Add(entry Entry) {
	s.mu.Lock()
	for len(s.entries) >= MaxEntries {
		evicted := s.entries[len(s.entries)-1]
		s.entries = s.entries[:len(s.entries)-1]
		if evicted.AudioPath != "" {
			os.Remove(evicted.AudioPath)
		}
	}
	s.entries = append([]Entry{entry}, s.entries...)
	s.save()
	s.mu.Unlock()
}

// Delete removes the entry with the given id, returning whether anything
// was removed. Its audio artifact, if any, is removed too.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			if e.AudioPath != "" {
				os.Remove(e.AudioPath)
			}
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.save()
			return true
		}
	}
	return false
}

// Clear empties the deque and removes all audio artifacts.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.AudioPath != "" {
			os.Remove(e.AudioPath)
		}
	}
	s.entries = nil
	s.save()
}

// Entries returns a copy of the current deque, newest-first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with the given id, if present.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len reports the current number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// AudioDir returns the directory audio artifacts are stored under.
func (s *Store) AudioDir() string { return s.audioDir }

// SaveAudio writes wavBytes to {audioDir}/{id}.wav and returns the path.
func (s *Store) SaveAudio(id string, wavBytes []byte) (string, error) {
	path := filepath.Join(s.audioDir, id+".wav")
	if err := os.WriteFile(path, wavBytes, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadAudioDataURI validates that requestedPath canonicalizes to a file
// under the audio directory, then returns its contents as a
// data:audio/wav;base64,... URI. Refuses any path that does not
// canonicalize under the audio directory, including `..`-traversal,
// absolute paths elsewhere, and non-existent paths.
func (s *Store) ReadAudioDataURI(requestedPath string) (string, error) {
	canonicalAudioDir, err := filepath.Abs(s.audioDir)
	if err != nil {
		return "", errRefused
	}
	canonicalAudioDir, err = filepath.EvalSymlinks(canonicalAudioDir)
	if err != nil {
		return "", errRefused
	}

	absRequested, err := filepath.Abs(requestedPath)
	if err != nil {
		return "", errRefused
	}
	canonicalRequested, err := filepath.EvalSymlinks(absRequested)
	if err != nil {
		return "", errRefused
	}

	rel, err := filepath.Rel(canonicalAudioDir, canonicalRequested)
	if err != nil || rel == ".." || len(rel) >= 2 && rel[:2] == ".." {
		return "", errRefused
	}
	if strHasPrefixDotDot(rel) {
		return "", errRefused
	}

	data, err := os.ReadFile(canonicalRequested)
	if err != nil {
		return "", errRefused
	}

	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func strHasPrefixDotDot(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

var errRefused = pathRefusedError{}

type pathRefusedError struct{}

func (pathRefusedError) Error() string { return "history: audio path refused" }
