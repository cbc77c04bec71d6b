// Package local implements the embedded offline transcription provider
// backed by the whisper.cpp bindings: model load and idle unload, thread
// count resolution, and a hard per-call decode timeout.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"dictatord/internal/provider"
)

const (
	// decodeTimeout bounds a single local transcription call; the backend
	// has no cooperative cancellation, so a hard outer timeout is used
	// instead.
	decodeTimeout = 300 * time.Second

	// DefaultIdleTimeout is how long the model may sit unused before
	// MaybeUnload releases it.
	DefaultIdleTimeout = 600 * time.Second
)

// Provider is the local (embedded) transcription provider.
type Provider struct {
	mu      sync.RWMutex
	backend backend

	modelPath string
	threads   int
	gpu       bool

	loaded  bool
	lastUse time.Time
}

// New constructs a Provider backed by the real whisper.cpp bindings.
func New(modelPath string, threads int, gpuEnabled bool) *Provider {
	return newWithBackend(newRealBackend(), modelPath, threads, gpuEnabled)
}

func newWithBackend(b backend, modelPath string, threads int, gpuEnabled bool) *Provider {
	return &Provider{
		backend:   b,
		modelPath: modelPath,
		threads:   threads,
		gpu:       gpuEnabled,
	}
}

func (p *Provider) Name() string { return "local" }

// IsAvailable reports whether a model path has been configured; it does
// not require the model to already be loaded.
func (p *Provider) IsAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelPath != ""
}

func (p *Provider) CostPerMinute() (float64, bool) { return 0, true }

// ModelPath, Threads, GPUEnabled report the cached provider's identity so
// the transcription service can decide whether to reuse it.
func (p *Provider) ModelPath() string { p.mu.RLock(); defer p.mu.RUnlock(); return p.modelPath }
func (p *Provider) Threads() int      { p.mu.RLock(); defer p.mu.RUnlock(); return p.threads }
func (p *Provider) GPUEnabled() bool  { p.mu.RLock(); defer p.mu.RUnlock(); return p.gpu }

// IsModelLoaded reports whether LoadModel has successfully run and the
// model has not since been unloaded.
func (p *Provider) IsModelLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// LoadModel is a no-op if already loaded; otherwise it loads the model at
// the resolved thread count. GPU is only honored if this build reports
// capability; otherwise CPU is used with a logged downgrade.
func (p *Provider) LoadModel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}

	if p.gpu {
		if available, _ := GPUCapability(); !available {
			log.Warn("GPU requested but this build has no GPU backend, using CPU", "component", "provider.local")
		}
	}

	threads := ResolveThreads(p.threads)
	if err := p.backend.Load(p.modelPath, threads); err != nil {
		return err
	}
	p.threads = threads
	p.loaded = true
	p.lastUse = time.Now()
	return nil
}

// UnloadModel releases the backend's model context.
func (p *Provider) UnloadModel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return nil
	}
	p.loaded = false
	p.lastUse = time.Time{}
	return p.backend.Close()
}

// MaybeUnload is the idle-unload predicate: if now - lastUse >= idleTimeout
// and the model is loaded, it is unloaded. It is a plain predicate probed
// opportunistically by callers; there is no background cleanup timer.
func (p *Provider) MaybeUnload(now time.Time, idleTimeout time.Duration) bool {
	p.mu.Lock()
	if !p.loaded || now.Sub(p.lastUse) < idleTimeout {
		p.mu.Unlock()
		return false
	}
	p.loaded = false
	p.lastUse = time.Time{}
	p.mu.Unlock()
	return p.backend.Close() == nil
}

// Transcribe runs decode on a worker goroutine bounded by a 300s timeout,
// so the model-context lock is never held across the blocking call.
func (p *Provider) Transcribe(ctx context.Context, audio []float32, cfg provider.Config) (provider.Result, error) {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if !loaded {
		return provider.Result{}, provider.ModelNotLoadedError{}
	}

	ctx, cancel := context.WithTimeout(ctx, decodeTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		text, err := p.backend.Transcribe(audio, cfg.Language, cfg.Translate)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return provider.Result{}, provider.TimeoutError{Seconds: int(decodeTimeout.Seconds())}
	case o := <-done:
		if o.err != nil {
			return provider.Result{}, o.err
		}
		p.mu.Lock()
		p.lastUse = time.Now()
		p.mu.Unlock()

		text := trim(o.text)
		if isHallucination(text) {
			text = ""
		}
		return provider.Result{
			Text:       text,
			Language:   cfg.Language,
			DurationMs: time.Since(start).Milliseconds(),
			Provider:   p.Name(),
		}, nil
	}
}

// trim removes leading/trailing spaces and newlines.
func trim(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\n') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\n') {
		s = s[:len(s)-1]
	}
	return s
}

// isHallucination reports whether text is a known whisper.cpp
// hallucination tag produced during silence or noise.
func isHallucination(s string) bool {
	tags := []string{
		"[BLANK_AUDIO]", "[blank_audio]",
		"(Music)", "(music)", "(noise)", "(Noise)",
		"[MUSIC]", "[Music]", "(clapping)", "(Applause)", "[silence]",
	}
	for _, tag := range tags {
		if s == tag {
			return true
		}
	}
	return len(s) > 2 && ((s[0] == '[' && s[len(s)-1] == ']') || (s[0] == '(' && s[len(s)-1] == ')'))
}
