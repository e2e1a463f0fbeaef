// Package whisperserver transcribes audio through a self-hosted
// OpenAI-compatible whisper HTTP server.
package whisperserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"video2guide/internal/app/model"
	"video2guide/internal/app/provider"
)

const name = "whisper-server"

// Config locates the server. APIKey is optional; when set it is sent as a
// bearer token.
type Config struct {
	BaseURL       string
	InferencePath string
	Model         string
	APIKey        string
	Timeout       time.Duration
}

// Transcriber uploads audio chunks as multipart forms. Small self-hosted
// servers keep the whole upload in memory, hence the tight size limits.
type Transcriber struct {
	cfg    Config
	client *http.Client
	retry  provider.RetryPolicy
	log    *zap.Logger
}

type inferenceResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

func New(cfg Config, log *zap.Logger) *Transcriber {
	if cfg.InferencePath == "" {
		cfg.InferencePath = "/inference"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Transcriber{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		retry:  provider.DefaultRetryPolicy(),
		log:    log.Named("whisperserver"),
	}
}

func (t *Transcriber) Name() string { return name }

// Probe issues a GET against the base URL. Any response at all means the
// server process is up; 404 on the root path is normal.
func (t *Transcriber) Probe(ctx context.Context) provider.Health {
	if t.cfg.BaseURL == "" {
		return provider.Health{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL, nil)
	if err != nil {
		return provider.Health{}
	}
	t.setAuth(req)
	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Debug("probe failed", zap.Error(err))
		return provider.Health{}
	}
	defer resp.Body.Close()
	return provider.Health{Available: true, ModelPresent: true}
}

func (t *Transcriber) Limits() provider.Limits {
	return provider.Limits{
		MaxFileSizeMB:       5,
		TargetChunkSizeMB:   2,
		MaxChunkDurationSec: 120,
		OverlapSec:          10,
		MinChunkDurationSec: 15,
	}
}

func (t *Transcriber) TranscribeChunk(ctx context.Context, audioPath string, durationHint float64) (*model.TranscriptionResult, error) {
	var parsed inferenceResponse
	err := provider.WithRetry(ctx, t.retry, func() error {
		return t.transcribeOnce(ctx, audioPath, &parsed)
	})
	if err != nil {
		return nil, err
	}

	result := &model.TranscriptionResult{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Duration: parsed.Duration,
	}
	if result.Duration == 0 {
		result.Duration = durationHint
	}
	result.SetMeta("provider", name)
	result.SetMeta("base_url", t.cfg.BaseURL)
	result.Quality = model.ComputeQuality(result)
	return result, nil
}

func (t *Transcriber) transcribeOnce(ctx context.Context, audioPath string, out *inferenceResponse) error {
	body, contentType, err := t.buildForm(audioPath)
	if err != nil {
		return &provider.Error{Provider: name, Code: "form", Message: "building multipart form", Err: err}
	}

	url := strings.TrimRight(t.cfg.BaseURL, "/") + t.cfg.InferencePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return &provider.Error{Provider: name, Code: "request", Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	t.setAuth(req)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &provider.Error{Provider: name, Code: "transport", Message: "request failed", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.Error{Provider: name, Code: "read", Message: "reading response", Retryable: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &provider.Error{
			Provider:  name,
			Code:      "http_status",
			Message:   fmt.Sprintf("server returned %d: %s", resp.StatusCode, truncate(string(data), 256)),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &provider.Error{Provider: name, Code: "parse", Message: "parsing response JSON", Err: err}
	}
	if out.Text == "" {
		return &provider.Error{Provider: name, Code: "empty_transcription", Message: "no text in response"}
	}
	return nil
}

func (t *Transcriber) buildForm(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("model", t.cfg.Model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("response_format", "json"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func (t *Transcriber) setAuth(req *http.Request) {
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
