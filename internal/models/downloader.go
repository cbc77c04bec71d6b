package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"dictatord/internal/event"
	"dictatord/internal/sysinfo"
)

// baseURL is the content-addressed mirror template: {base}/{filename}.
const baseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// spaceSafetyFactor pads the disk-space precheck so a download never
// lands on a filesystem with zero headroom left.
const spaceSafetyFactor = 1.1

// Progress is the payload of ModelDownloadProgress events.
type Progress struct {
	Name            string
	DownloadedBytes int64
	TotalBytes      int64
	Percentage      float64
	SpeedBps        int64
}

// Downloader manages background model downloads with cooperative
// cancellation, a disk-space precheck, and streaming checksum
// verification.
type Downloader struct {
	mu         sync.Mutex
	modelsDir  string
	baseURL    string
	bus        *event.Bus
	inProgress map[string]context.CancelFunc
}

// New constructs a Downloader rooted at modelsDir, emitting progress via
// bus.
func New(modelsDir string, bus *event.Bus) *Downloader {
	return &Downloader{
		modelsDir:  modelsDir,
		baseURL:    baseURL,
		bus:        bus,
		inProgress: make(map[string]context.CancelFunc),
	}
}

// Status reports a model's on-disk/in-flight state: "downloaded",
// "not_downloaded", or "downloading".
func (d *Downloader) Status(name string) string {
	d.mu.Lock()
	_, downloading := d.inProgress[name]
	d.mu.Unlock()
	if downloading {
		return "downloading"
	}

	desc, ok := Find(name)
	if !ok {
		return "not_downloaded"
	}
	if _, err := os.Stat(filepath.Join(d.modelsDir, desc.FileName)); err == nil {
		return "downloaded"
	}
	return "not_downloaded"
}

// ModelPath returns the expected on-disk path for a catalog entry.
func (d *Downloader) ModelPath(name string) string {
	desc, ok := Find(name)
	if !ok {
		return ""
	}
	return filepath.Join(d.modelsDir, desc.FileName)
}

// Start begins a background download of name. It returns immediately;
// progress, completion, and error are reported via the event bus. A
// second Start call for a name already downloading returns
// AlreadyInProgressError.
func (d *Downloader) Start(name string) error {
	desc, ok := Find(name)
	if !ok {
		return UnknownModelError{Name: name}
	}

	d.mu.Lock()
	if _, busy := d.inProgress[name]; busy {
		d.mu.Unlock()
		return AlreadyInProgressError{Name: name}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.inProgress[name] = cancel
	d.mu.Unlock()

	go d.run(ctx, desc)
	return nil
}

// Cancel requests cancellation of an in-flight download for name. It is
// a no-op if name is not currently downloading.
func (d *Downloader) Cancel(name string) {
	d.mu.Lock()
	cancel, ok := d.inProgress[name]
	d.mu.Unlock()
	if ok {
		cancel()
	}
}

func (d *Downloader) finish(name string) {
	d.mu.Lock()
	delete(d.inProgress, name)
	d.mu.Unlock()
}

func (d *Downloader) run(ctx context.Context, desc Descriptor) {
	defer d.finish(desc.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("download panic recovered", "component", "downloader", "name", desc.Name, "panic", r)
			d.bus.Emit(event.ModelDownloadError, fmt.Sprintf("%s: unexpected error: %v", desc.Name, r))
		}
	}()

	if err := os.MkdirAll(d.modelsDir, 0o755); err != nil {
		d.fail(desc.Name, IOError{Why: err.Error()})
		return
	}

	needed := uint64(float64(desc.SizeBytes) * spaceSafetyFactor)
	if free, err := sysinfo.DiskFree(d.modelsDir); err == nil && free < needed {
		d.fail(desc.Name, InsufficientSpaceError{NeededBytes: needed, AvailableBytes: free})
		return
	}

	tmpPath := filepath.Join(d.modelsDir, desc.FileName+".tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		d.fail(desc.Name, IOError{Why: err.Error()})
		return
	}
	defer os.Remove(tmpPath)

	url := d.baseURL + "/" + desc.FileName
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.Close()
		d.fail(desc.Name, NetworkError{Why: err.Error()})
		return
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		f.Close()
		if ctx.Err() != nil {
			d.cancelled(desc.Name)
			return
		}
		d.fail(desc.Name, NetworkError{Why: err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.Close()
		d.fail(desc.Name, NetworkError{Why: fmt.Sprintf("server returned %d", resp.StatusCode)})
		return
	}

	total := resp.ContentLength
	hasher := sha256.New()
	var downloaded int64
	lastPct := -1
	started := time.Now()
	buf := make([]byte, 64*1024)

	for {
		select {
		case <-ctx.Done():
			f.Close()
			d.cancelled(desc.Name)
			return
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				d.fail(desc.Name, IOError{Why: werr.Error()})
				return
			}
			hasher.Write(buf[:n])
			downloaded += int64(n)

			if total > 0 {
				pct := int(downloaded * 100 / total)
				if pct != lastPct {
					lastPct = pct
					elapsed := time.Since(started).Seconds()
					var speed int64
					if elapsed > 0 {
						speed = int64(float64(downloaded) / elapsed)
					}
					d.bus.Emit(event.ModelDownloadProgress, Progress{
						Name:            desc.Name,
						DownloadedBytes: downloaded,
						TotalBytes:      total,
						Percentage:      float64(downloaded) * 100 / float64(total),
						SpeedBps:        speed,
					})
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			d.fail(desc.Name, NetworkError{Why: readErr.Error()})
			return
		}
	}
	f.Close()

	if desc.SHA256 != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if got != desc.SHA256 {
			os.Remove(tmpPath)
			d.fail(desc.Name, ChecksumMismatchError{Expected: desc.SHA256, Actual: got})
			return
		}
	} else {
		log.Warn("no checksum available, skipping verification", "component", "downloader", "name", desc.Name)
	}

	if ctx.Err() != nil {
		d.cancelled(desc.Name)
		return
	}

	finalPath := filepath.Join(d.modelsDir, desc.FileName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		d.fail(desc.Name, IOError{Why: err.Error()})
		return
	}

	d.bus.Emit(event.ModelDownloadComplete, desc.Name)
}

func (d *Downloader) fail(name string, err error) {
	log.Error("download failed", "component", "downloader", "name", name, "error", err)
	d.bus.Emit(event.ModelDownloadError, fmt.Sprintf("%s: %v", name, err))
}

func (d *Downloader) cancelled(name string) {
	log.Info("download cancelled", "component", "downloader", "name", name)
	d.bus.Emit(event.ModelDownloadCancelled, name)
}
