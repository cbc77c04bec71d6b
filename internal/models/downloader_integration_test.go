package models

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dictatord/internal/event"
)

// waitFor blocks until ch yields a payload or the deadline expires.
func waitFor(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for download event")
		return nil
	}
}

func subscribe(bus *event.Bus, name event.Name) <-chan any {
	ch := make(chan any, 16)
	bus.Subscribe(name, func(payload any) { ch <- payload })
	return ch
}

// TestDownloadChecksumMismatchDeletesTemp serves a body that cannot
// match the catalog's expected checksum and requires both the error
// event and the removal of the temp file.
func TestDownloadChecksumMismatchDeletesTemp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not a whisper model"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	bus := event.New()
	errCh := subscribe(bus, event.ModelDownloadError)

	d := New(dir, bus)
	d.baseURL = srv.URL

	require.NoError(t, d.Start("tiny"))

	payload := waitFor(t, errCh)
	msg, ok := payload.(string)
	require.True(t, ok, "error payload should be a string, got %T", payload)
	require.Contains(t, msg, "checksum mismatch")

	desc, _ := Find("tiny")
	_, err := os.Stat(filepath.Join(dir, desc.FileName+".tmp"))
	require.True(t, os.IsNotExist(err), "temp file must be deleted on checksum mismatch")
	_, err = os.Stat(filepath.Join(dir, desc.FileName))
	require.True(t, os.IsNotExist(err), "final file must not exist on checksum mismatch")
}

// TestDownloadNoChecksumSkipsVerification exercises the documented
// policy for catalog cells without a published checksum: the download
// completes with verification skipped.
func TestDownloadNoChecksumSkipsVerification(t *testing.T) {
	body := strings.Repeat("m", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	bus := event.New()
	doneCh := subscribe(bus, event.ModelDownloadComplete)
	progressCh := subscribe(bus, event.ModelDownloadProgress)

	d := New(dir, bus)
	d.baseURL = srv.URL

	require.NoError(t, d.Start("medium-q5_1"))

	require.Equal(t, "medium-q5_1", waitFor(t, doneCh))

	desc, _ := Find("medium-q5_1")
	data, err := os.ReadFile(filepath.Join(dir, desc.FileName))
	require.NoError(t, err)
	require.Equal(t, body, string(data))

	progress, ok := waitFor(t, progressCh).(Progress)
	require.True(t, ok)
	require.Equal(t, int64(len(body)), progress.TotalBytes)
	require.Positive(t, progress.SpeedBps)
}

// TestDownloadServerErrorEmitsNetworkError requires a non-2xx response
// to surface as a download error, not a retry loop.
func TestDownloadServerErrorEmitsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	bus := event.New()
	errCh := subscribe(bus, event.ModelDownloadError)

	d := New(dir, bus)
	d.baseURL = srv.URL

	require.NoError(t, d.Start("base"))

	msg, ok := waitFor(t, errCh).(string)
	require.True(t, ok)
	require.Contains(t, msg, "503")
}
