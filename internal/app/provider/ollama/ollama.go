// Package ollama generates guides through a local Ollama daemon.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"video2guide/internal/app/guide"
	"video2guide/internal/app/provider"
)

const name = "ollama"

type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	NumPredict  int
	Timeout     time.Duration
	PullTimeout time.Duration
	AutoPull    bool
}

// Generator produces guides via /api/generate. Requests are serialized with a
// mutex: a single Ollama host swaps models in and out of memory, and
// concurrent generations against one model degrade badly.
type Generator struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger

	mu         sync.Mutex
	pulledOnce bool
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func New(cfg Config, log *zap.Logger) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.NumPredict == 0 {
		cfg.NumPredict = 4000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PullTimeout == 0 {
		cfg.PullTimeout = 10 * time.Minute
	}
	return &Generator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("ollama"),
	}
}

func (g *Generator) Name() string { return name }

// Probe hits /api/tags and checks whether the configured model is present.
// The daemon being up with the model missing still reports Available so the
// caller can decide to pull.
func (g *Generator) Probe(ctx context.Context) provider.Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return provider.Health{}
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Debug("probe failed", zap.Error(err))
		return provider.Health{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return provider.Health{}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return provider.Health{Available: true}
	}
	for _, m := range tags.Models {
		if m.Name == g.cfg.Model || strings.SplitN(m.Name, ":", 2)[0] == g.cfg.Model {
			return provider.Health{Available: true, ModelPresent: true}
		}
	}
	return provider.Health{Available: true}
}

func (g *Generator) GenerateGuide(ctx context.Context, transcription string, gctx provider.GuideContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cfg.AutoPull && !g.pulledOnce {
		health := g.Probe(ctx)
		if health.Available && !health.ModelPresent {
			if err := g.pullModel(ctx); err != nil {
				return "", err
			}
		}
		g.pulledOnce = true
	}

	body, err := json.Marshal(generateRequest{
		Model:  g.cfg.Model,
		Prompt: guide.UserPrompt(transcription, gctx),
		System: guide.SystemPrompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": g.cfg.Temperature,
			"num_predict": g.cfg.NumPredict,
		},
	})
	if err != nil {
		return "", &provider.Error{Provider: name, Code: "encode", Message: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &provider.Error{Provider: name, Code: "request", Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &provider.Error{Provider: name, Code: "transport", Message: "generate request failed", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.Error{Provider: name, Code: "read", Message: "reading response", Retryable: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &provider.Error{
			Provider:  name,
			Code:      "http_status",
			Message:   fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
			Retryable: resp.StatusCode >= 500,
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &provider.Error{Provider: name, Code: "parse", Message: "parsing response", Err: err}
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", &provider.Error{Provider: name, Code: "empty_response", Message: "model returned no text"}
	}
	return strings.TrimSpace(parsed.Response), nil
}

// pullModel downloads the configured model. Pulls are slow, so this uses its
// own client with the long pull timeout and only ever runs once per process.
func (g *Generator) pullModel(ctx context.Context) error {
	g.log.Info("pulling model", zap.String("model", g.cfg.Model))

	body, err := json.Marshal(map[string]interface{}{
		"name":   g.cfg.Model,
		"stream": false,
	})
	if err != nil {
		return &provider.Error{Provider: name, Code: "encode", Message: "encoding pull request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return &provider.Error{Provider: name, Code: "request", Message: "building pull request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	pullClient := &http.Client{Timeout: g.cfg.PullTimeout}
	resp, err := pullClient.Do(req)
	if err != nil {
		return &provider.Error{Provider: name, Code: "pull", Message: "model pull failed", Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &provider.Error{
			Provider: name,
			Code:     "pull_status",
			Message:  fmt.Sprintf("pull returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	g.log.Info("model pulled", zap.String("model", g.cfg.Model))
	return nil
}
