package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddAndEntriesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.Add(NewEntry("first", 100, "local", "en"))
	s.Add(NewEntry("second", 200, "local", "en"))

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Text != "second" || entries[1].Text != "first" {
		t.Errorf("entries = %+v, want newest-first", entries)
	}
}

func TestAddEvictsOldestBeyondBound(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	oldest := NewEntry("entry", 1, "local", "en")
	s.Add(oldest)
	for i := 1; i < MaxEntries+5; i++ {
		s.Add(NewEntry("entry", 1, "local", "en"))
	}
	if s.Len() != MaxEntries {
		t.Errorf("Len() = %d, want %d", s.Len(), MaxEntries)
	}
	if _, ok := s.Get(oldest.ID); ok {
		t.Errorf("oldest entry %q still present after exceeding the bound", oldest.ID)
	}
}

func TestPersistenceAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	s1, _ := Open(dir)
	s1.Add(NewEntry("persisted", 100, "local", "en"))

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if s2.Len() != 1 || s2.Entries()[0].Text != "persisted" {
		t.Errorf("second store did not recover persisted entry: %+v", s2.Entries())
	}
}

func TestOpenRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s1, _ := Open(dir)
	s1.Add(NewEntry("x", 1, "local", "en"))

	corruptPath := filepath.Join(dir, "history.json")
	if err := os.WriteFile(corruptPath, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Open with corrupt file: %v", err)
	}
	if s2.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after corrupt recovery", s2.Len())
	}
}

func TestDeleteRemovesAudioArtifact(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	entry := NewEntry("has audio", 1, "local", "en")
	path, err := s.SaveAudio(entry.ID, []byte("RIFF...."))
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	entry.AudioPath = path
	s.Add(entry)

	if !s.Delete(entry.ID) {
		t.Fatal("Delete returned false")
	}
	if _, err := s.ReadAudioDataURI(path); err == nil {
		t.Error("expected audio file to be removed after Delete")
	}
}

// TestReadAudioDataURIRefusesTraversal covers the path-traversal-safe
// audio access requirement.
func TestReadAudioDataURIRefusesTraversal(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	entry := NewEntry("x", 1, "local", "en")
	path, _ := s.SaveAudio(entry.ID, []byte("RIFF"))

	if _, err := s.ReadAudioDataURI(path); err != nil {
		t.Fatalf("legitimate path refused: %v", err)
	}

	traversal := filepath.Join(s.AudioDir(), "..", "..", "etc", "passwd")
	if _, err := s.ReadAudioDataURI(traversal); err == nil {
		t.Error("traversal path was not refused")
	}

	outside := filepath.Join(dir, "history.json")
	if _, err := s.ReadAudioDataURI(outside); err == nil {
		t.Error("path outside audio dir was not refused")
	}
}

func TestReadAudioDataURIReturnsDataURI(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	entry := NewEntry("x", 1, "local", "en")
	path, _ := s.SaveAudio(entry.ID, []byte("RIFF"))

	uri, err := s.ReadAudioDataURI(path)
	if err != nil {
		t.Fatalf("ReadAudioDataURI: %v", err)
	}
	if !strings.HasPrefix(uri, "data:audio/wav;base64,") {
		t.Errorf("uri = %q, want data:audio/wav;base64,... prefix", uri)
	}
}
