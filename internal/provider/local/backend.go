package local

import (
	"fmt"
	"os"
	"unicode/utf8"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"dictatord/internal/provider"
)

// backend abstracts the whisper.cpp CGo bindings so the provider and its
// tests don't need a real model file or built library.
type backend interface {
	Load(modelPath string, threads int) error
	Transcribe(pcm []float32, language string, translate bool) (string, error)
	Close() error
}

// realBackend wraps github.com/ggerganov/whisper.cpp/bindings/go.
type realBackend struct {
	model   whisperlib.Model
	context whisperlib.Context
}

func newRealBackend() *realBackend {
	return &realBackend{}
}

func (r *realBackend) Load(modelPath string, threads int) error {
	if !utf8.ValidString(modelPath) {
		return provider.InvalidPathError{Why: "model path is not valid UTF-8"}
	}
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return provider.ModelNotFoundError{Path: modelPath}
	}

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return provider.FailedError{Why: fmt.Sprintf("load model %q: %v", modelPath, err)}
	}
	r.model = model

	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return provider.FailedError{Why: fmt.Sprintf("create context: %v", err)}
	}

	ctx.SetThreads(uint(threads))
	// Progress printing is already disabled by the binding's context
	// defaults. Beam size is intentionally left unset: greedy sampling
	// with best_of=1 is wanted, and setting a beam size switches the
	// backend into beam-search decoding instead.

	r.context = ctx
	return nil
}

func (r *realBackend) Transcribe(pcm []float32, language string, translate bool) (string, error) {
	if r.context == nil {
		return "", provider.ModelNotLoadedError{}
	}

	r.context.SetTranslate(translate)
	if language != "" && language != "auto" {
		r.context.SetLanguage(language) //nolint:errcheck
	}

	if err := r.context.Process(pcm, nil, nil, nil); err != nil {
		return "", provider.FailedError{Why: fmt.Sprintf("process: %v", err)}
	}

	var text string
	for {
		seg, err := r.context.NextSegment()
		if err != nil {
			break // io.EOF, no more segments
		}
		text += seg.Text
	}
	return text, nil
}

func (r *realBackend) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}
