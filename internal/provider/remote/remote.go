// Package remote implements the HTTP transcription provider: a
// multipart/form-data POST against an OpenAI-compatible endpoint, with
// exponential-backoff retries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"dictatord/internal/dsp"
	"dictatord/internal/provider"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// Secrets is the get/set/validate contract the remote provider consumes
// for its API key; the production implementation is backed by the OS
// keychain (see internal/secrets).
type Secrets interface {
	Get(account string) (string, bool, error)
}

// Config configures a Provider.
type Config struct {
	Name          string // provider name reported by Name(), e.g. "groq"
	Model         string
	BaseURL       string // e.g. "https://api.groq.com/openai/v1"
	APIKeyAccount string
	APIKeyPrefix  string
	Timeout       time.Duration
	MaxRetries    int
	CostPerMinute float64
	HasCost       bool
}

// Provider is the HTTP-backed transcription provider.
type Provider struct {
	cfg     Config
	secrets Secrets
	client  *http.Client
}

// New constructs a remote Provider.
func New(cfg Config, secrets Secrets, client *http.Client) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Provider{cfg: cfg, secrets: secrets, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) IsAvailable() bool {
	key, ok, err := p.secrets.Get(p.cfg.APIKeyAccount)
	if err != nil || !ok {
		return false
	}
	return ValidateAPIKey(key, p.cfg.APIKeyPrefix)
}

func (p *Provider) CostPerMinute() (float64, bool) {
	return p.cfg.CostPerMinute, p.cfg.HasCost
}

// Transcribe posts the audio to the configured endpoint, retrying on
// network errors, 429, and 5xx with the deterministic backoff schedule.
func (p *Provider) Transcribe(ctx context.Context, audio []float32, cfg provider.Config) (provider.Result, error) {
	key, ok, err := p.secrets.Get(p.cfg.APIKeyAccount)
	if err != nil {
		return provider.Result{}, provider.FailedError{Why: fmt.Sprintf("reading api key: %v", err)}
	}
	if !ok || !ValidateAPIKey(key, p.cfg.APIKeyPrefix) {
		return provider.Result{}, provider.FailedError{Why: "invalid or missing api key"}
	}

	wav := dsp.EncodeWAV(audio, 16000, 1)
	bo := newBackoff()

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return provider.Result{}, provider.TimeoutError{Seconds: int(p.cfg.Timeout.Seconds())}
			}
		}

		start := time.Now()
		result, err := p.attempt(ctx, key, wav, cfg)
		if err == nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, nil
		}

		lastErr = err
		if !provider.IsRetryable(err) {
			return provider.Result{}, err
		}
		log.Warn("retryable failure, backing off", "component", "provider.remote", "provider", p.cfg.Name, "attempt", attempt, "error", err)
	}

	return provider.Result{}, lastErr
}

func (p *Provider) attempt(ctx context.Context, apiKey string, wav []byte, cfg provider.Config) (provider.Result, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return provider.Result{}, provider.FailedError{Why: err.Error()}
	}
	if _, err := part.Write(wav); err != nil {
		return provider.Result{}, provider.FailedError{Why: err.Error()}
	}
	writer.WriteField("model", p.cfg.Model)
	writer.WriteField("response_format", "json")
	if cfg.Language != "" && cfg.Language != "auto" {
		writer.WriteField("language", cfg.Language)
	}
	if err := writer.Close(); err != nil {
		return provider.Result{}, provider.FailedError{Why: err.Error()}
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, body)
	if err != nil {
		return provider.Result{}, provider.FailedError{Why: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return provider.Result{}, provider.TimeoutError{Seconds: int(p.cfg.Timeout.Seconds())}
		}
		return provider.Result{}, provider.NetworkError{Why: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return provider.Result{}, provider.FailedError{Why: "decoding response: " + err.Error()}
		}
		return provider.Result{
			Text:     strings.TrimSpace(parsed.Text),
			Language: cfg.Language,
			Provider: p.cfg.Name,
		}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return provider.Result{}, provider.RateLimitedError{}
	case resp.StatusCode >= 500:
		return provider.Result{}, provider.NetworkError{Why: fmt.Sprintf("server error %d", resp.StatusCode)}
	default:
		return provider.Result{}, provider.ApiError{Body: string(respBody)}
	}
}
