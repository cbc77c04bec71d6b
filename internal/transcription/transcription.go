// Package transcription implements the transcription service: model
// lifecycle caching, the recording-processing pipeline (resample, VAD,
// provider dispatch, history, output), and the metrics ring.
package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"dictatord/internal/config"
	"dictatord/internal/dsp"
	"dictatord/internal/event"
	"dictatord/internal/history"
	"dictatord/internal/orchestrator"
	"dictatord/internal/output"
	"dictatord/internal/provider"
	"dictatord/internal/provider/local"
	"dictatord/internal/provider/remote"
	"dictatord/internal/secrets"
	"dictatord/internal/vad"
)

const (
	targetSampleRate = 16000
	minSamples       = 1600 // 0.1s at 16kHz
	metricsCapacity  = 100
	groqAccount      = "groq"
	groqKeyPrefix    = "gsk_"
	idleUnloadAfter  = local.DefaultIdleTimeout
)

// cachedLocal remembers the identity of the currently loaded local
// provider so a request matching the same settings can reuse it instead
// of reloading the model.
type cachedLocal struct {
	provider   *local.Provider
	modelPath  string
	gpuEnabled bool
	threads    int
}

// Status is the point-in-time snapshot exposed to callers (e.g. a
// future UI collaborator).
type Status struct {
	Provider       string
	Model          string
	ModelLoaded    bool
	IsTranscribing bool
	LastResult     string
	LastDurationMs int64
	LastError      string
}

// Record is one metrics-ring entry.
type Record struct {
	TimestampMs      int64
	AudioDurationMs  int64
	ProcessingTimeMs int64
	RealTimeFactor   float64
	Provider         string
	Model            string
	GPUUsed          bool
	ThreadsUsed      int
	VADEnabled       bool
	VADFilteredMs    *int64
	ResultChars      int
}

// ModelPathResolver maps a configured model name to its on-disk path
// (e.g. via the model downloader's catalog).
type ModelPathResolver func(name string) string

// Service owns the model cache, the status snapshot, and the metrics
// ring.
type Service struct {
	mu           sync.RWMutex
	cached       *cachedLocal
	status       Status
	metrics      []Record
	resolveModel ModelPathResolver
	bus          *event.Bus
	hist         *history.Store
	out          *output.Injector
	secretsStore secrets.Store

	// providerFactory resolves the primary+fallback orchestrator for a
	// request. Defaults to resolveProviders; overridden in tests so the
	// pipeline can be exercised without a real local model file.
	providerFactory func(cfg config.Transcription) (*orchestrator.Orchestrator, error)
}

// New constructs a Service.
func New(bus *event.Bus, hist *history.Store, out *output.Injector, secretsStore secrets.Store, resolveModel ModelPathResolver) *Service {
	s := &Service{
		bus:          bus,
		hist:         hist,
		out:          out,
		secretsStore: secretsStore,
		resolveModel: resolveModel,
	}
	s.providerFactory = s.resolveProviders
	return s
}

// Status returns a copy of the current status snapshot. Reading status
// touches the model cache, so the idle-unload predicate is probed first.
func (s *Service) Status() Status {
	s.MaybeUnloadIdleModel()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Metrics returns a copy of the metrics ring, oldest first.
func (s *Service) Metrics() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// MaybeUnloadIdleModel probes the cached local model's idle timer,
// releasing it if idle for longer than idleUnloadAfter. Called
// opportunistically by status queries and before transcriptions, not by
// a background timer.
func (s *Service) MaybeUnloadIdleModel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return
	}
	if s.cached.provider.MaybeUnload(time.Now(), idleUnloadAfter) {
		s.status.ModelLoaded = false
	}
}

// Close releases the cached local model, if any. Called once at process
// shutdown so the backend can free its native resources before exit.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return
	}
	if err := s.cached.provider.UnloadModel(); err != nil {
		log.Warn("unloading model at shutdown failed", "component", "transcription", "error", err)
	}
	s.cached = nil
	s.status.ModelLoaded = false
}

// resolveLocal returns a local provider matching the requested
// identity, reusing the cache when possible.
func (s *Service) resolveLocal(cfg config.LocalTranscription) (*local.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threads := cfg.Threads
	path := s.resolveModel(cfg.Model)

	if s.cached != nil && s.cached.provider.MaybeUnload(time.Now(), idleUnloadAfter) {
		s.status.ModelLoaded = false
	}

	if s.cached != nil &&
		s.cached.modelPath == path &&
		s.cached.gpuEnabled == cfg.GPUEnabled &&
		s.cached.threads == threads &&
		s.cached.provider.IsModelLoaded() {
		return s.cached.provider, nil
	}

	if s.cached != nil {
		if err := s.cached.provider.UnloadModel(); err != nil {
			log.Warn("unloading replaced model failed", "component", "transcription", "error", err)
		}
		s.cached = nil
		s.status.ModelLoaded = false
	}

	p := local.New(path, threads, cfg.GPUEnabled)
	if err := p.LoadModel(); err != nil {
		return nil, err
	}
	s.cached = &cachedLocal{provider: p, modelPath: path, gpuEnabled: cfg.GPUEnabled, threads: threads}
	s.status.Model = cfg.Model
	s.status.ModelLoaded = true
	return p, nil
}

func (s *Service) resolveRemote(cfg config.GroqTranscription) *remote.Provider {
	return remote.New(remote.Config{
		Name:          "groq",
		Model:         cfg.Model,
		BaseURL:       "https://api.groq.com/openai/v1",
		APIKeyAccount: groqAccount,
		APIKeyPrefix:  groqKeyPrefix,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, secrets.RemoteAdapter{Store: s.secretsStore}, nil)
}

// resolveProviders picks the primary and optional fallback provider
// per settings: remote is primary when configured and its key
// validates; otherwise local is primary. The other provider (if
// constructible) serves as fallback.
func (s *Service) resolveProviders(cfg config.Transcription) (*orchestrator.Orchestrator, error) {
	localProvider, localErr := s.resolveLocal(cfg.Local)

	if cfg.Provider == "groq" {
		remoteProvider := s.resolveRemote(cfg.Groq)
		if remoteProvider.IsAvailable() {
			if localErr == nil {
				return orchestrator.WithFallback(remoteProvider, localProvider), nil
			}
			return orchestrator.New(remoteProvider), nil
		}
	}

	if localErr != nil {
		return nil, localErr
	}
	return orchestrator.New(localProvider), nil
}

// ProcessRecording is the full process_recording pipeline.
func (s *Service) ProcessRecording(ctx context.Context, rawSamples []float32, deviceRate int, cfg config.Settings) (string, error) {
	s.mu.Lock()
	s.status.IsTranscribing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.status.IsTranscribing = false
		s.mu.Unlock()
	}()

	start := time.Now()

	resampled := rawSamples
	if deviceRate != targetSampleRate {
		resampled = dsp.Resample(rawSamples, deviceRate, targetSampleRate)
	}
	if len(resampled) < minSamples {
		return "", s.fail(TooShortError{})
	}

	original := resampled
	toTranscribe := resampled
	var vadFilteredMs *int64

	if cfg.Audio.VAD.Enabled {
		vadCfg := vad.Config{
			Mode:                vad.Mode(cfg.Audio.VAD.Aggressiveness),
			MinSpeechDurationMs: cfg.Audio.VAD.MinSpeechDurationMs,
			PaddingMs:           cfg.Audio.VAD.PaddingMs,
			FrameDurationMs:     30,
		}
		backend, err := newVADBackend(vadCfg.Mode)
		if err != nil {
			log.Warn("VAD backend unavailable, using unfiltered audio", "component", "transcription", "error", err)
		} else {
			// Cheap pre-flight gate: classify only the first few frames
			// before paying for the full filter + padding pass.
			if has, err := vad.ContainsSpeech(resampled, targetSampleRate, vadCfg, backend); err == nil && !has {
				return "", s.fail(NoSpeechError{})
			}
			result, err := vad.FilterSpeech(resampled, targetSampleRate, vadCfg, backend)
			if err != nil {
				log.Warn("VAD failed, falling back to unfiltered audio", "component", "transcription", "error", err)
			} else {
				if len(result.Audio) == 0 || result.SpeechPercentage < 1.0 {
					return "", s.fail(NoSpeechError{})
				}
				toTranscribe = result.Audio
				filtered := int64(result.OriginalDurationMs - result.SpeechDurationMs)
				vadFilteredMs = &filtered
			}
		}
	}

	orch, err := s.providerFactory(cfg.Transcription)
	if err != nil {
		return "", s.fail(err)
	}

	result, err := orch.Transcribe(ctx, toTranscribe, provider.Config{
		Language: cfg.Transcription.Language,
	})
	if err != nil {
		return "", s.fail(err)
	}

	processingMs := time.Since(start).Milliseconds()
	audioMs := int64(len(original)) * 1000 / targetSampleRate

	rtf := 0.0
	if audioMs > 0 {
		rtf = float64(processingMs) / float64(audioMs)
	}

	s.mu.Lock()
	s.appendMetric(Record{
		TimestampMs:      time.Now().UnixMilli(),
		AudioDurationMs:  audioMs,
		ProcessingTimeMs: processingMs,
		RealTimeFactor:   rtf,
		Provider:         result.Provider,
		Model:            cfg.Transcription.Local.Model,
		GPUUsed:          cfg.Transcription.Local.GPUEnabled,
		ThreadsUsed:      cfg.Transcription.Local.Threads,
		VADEnabled:       cfg.Audio.VAD.Enabled,
		VADFilteredMs:    vadFilteredMs,
		ResultChars:      len(result.Text),
	})
	s.status.Provider = result.Provider
	s.status.LastResult = result.Text
	s.status.LastDurationMs = processingMs
	s.status.LastError = ""
	s.mu.Unlock()

	if result.Text != "" {
		entry := history.NewEntry(result.Text, processingMs, result.Provider, result.Language)
		wav := dsp.EncodeWAV(original, targetSampleRate, 1)
		if path, err := s.hist.SaveAudio(entry.ID, wav); err == nil {
			entry.AudioPath = path
		} else {
			log.Warn("saving audio artifact failed", "component", "transcription", "error", err)
		}
		s.hist.Add(entry)
		s.bus.Emit(event.HistoryUpdated, entry)

		if err := s.out.Send(result.Text, func() { s.bus.Emit(event.ShowPopup, result.Text) }); err != nil {
			log.Warn("output injection failed", "component", "transcription", "error", err)
		}
	}

	s.bus.Emit(event.TranscriptionComplete, result)
	return result.Text, nil
}

// rmsThresholdDB is the speech threshold used by the RMS pseudo-mode: a
// frame whose level exceeds this many dBFS counts as speech.
const rmsThresholdDB = -40.0

// newVADBackend maps the configured aggressiveness to a backend: the
// RMS pseudo-mode selects the amplitude-threshold fallback, everything
// else the frame classifier at that aggressiveness.
func newVADBackend(mode vad.Mode) (vad.Backend, error) {
	if mode == vad.RMS {
		return vad.NewRMSBackend(rmsThresholdDB), nil
	}
	return vad.NewWebRTCBackend(mode)
}

func (s *Service) appendMetric(r Record) {
	s.metrics = append(s.metrics, r)
	if len(s.metrics) > metricsCapacity {
		s.metrics = s.metrics[len(s.metrics)-metricsCapacity:]
	}
}

// newWithProviderFactory builds a Service with the provider resolution
// step replaced, for tests that exercise the pipeline without a real
// local model file.
func newWithProviderFactory(bus *event.Bus, hist *history.Store, out *output.Injector, factory func(config.Transcription) (*orchestrator.Orchestrator, error)) *Service {
	return &Service{
		bus:             bus,
		hist:            hist,
		out:             out,
		providerFactory: factory,
	}
}

func (s *Service) fail(err error) error {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
	s.bus.Emit(event.TranscriptionError, err.Error())
	return err
}
