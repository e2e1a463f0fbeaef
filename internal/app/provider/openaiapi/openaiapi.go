// Package openaiapi talks to OpenAI-compatible endpoints through the
// sashabaranov client, covering both Whisper transcription and chat-based
// guide generation.
package openaiapi

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"video2guide/internal/app/guide"
	"video2guide/internal/app/model"
	"video2guide/internal/app/provider"
)

const (
	transcriberName = "openai-whisper"
	generatorName   = "openai-chat"
)

// Config holds the API-side knobs. BaseURL is optional and enables
// OpenAI-compatible gateways.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	ChatModel          string
	Temperature        float32
	MaxTokens          int
}

func newClient(cfg Config) *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(c)
}

// Transcriber uploads audio chunks to the Whisper endpoint.
type Transcriber struct {
	client *openai.Client
	cfg    Config
	retry  provider.RetryPolicy
	log    *zap.Logger
}

func NewTranscriber(cfg Config, log *zap.Logger) *Transcriber {
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	return &Transcriber{
		client: newClient(cfg),
		cfg:    cfg,
		retry:  provider.DefaultRetryPolicy(),
		log:    log.Named("openaiapi"),
	}
}

func (t *Transcriber) Name() string { return transcriberName }

func (t *Transcriber) Probe(ctx context.Context) provider.Health {
	if t.cfg.APIKey == "" {
		return provider.Health{}
	}
	if _, err := t.client.ListModels(ctx); err != nil {
		t.log.Debug("probe failed", zap.Error(err))
		return provider.Health{}
	}
	return provider.Health{Available: true, ModelPresent: true}
}

// Limits reflects the 25 MB Whisper upload cap, shaved down to leave headroom
// for container overhead.
func (t *Transcriber) Limits() provider.Limits {
	return provider.Limits{
		MaxFileSizeMB:       24,
		TargetChunkSizeMB:   20,
		MaxChunkDurationSec: 300,
		OverlapSec:          10,
		MinChunkDurationSec: 15,
	}
}

func (t *Transcriber) TranscribeChunk(ctx context.Context, audioPath string, durationHint float64) (*model.TranscriptionResult, error) {
	var resp openai.AudioResponse
	err := provider.WithRetry(ctx, t.retry, func() error {
		req := openai.AudioRequest{
			Model:    t.cfg.TranscriptionModel,
			FilePath: audioPath,
			Format:   openai.AudioResponseFormatVerboseJSON,
		}
		var callErr error
		resp, callErr = t.client.CreateTranscription(ctx, req)
		if callErr != nil {
			return classify(transcriberName, "transcribe", callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &model.TranscriptionResult{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: float64(resp.Duration),
	}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, model.Segment{
			ID:         seg.ID,
			Text:       seg.Text,
			Start:      seg.Start,
			End:        seg.End,
			AvgLogprob: seg.AvgLogprob,
			HasLogprob: true,
		})
	}
	result.SetMeta("provider", transcriberName)
	result.SetMeta("model", t.cfg.TranscriptionModel)
	result.Quality = model.ComputeQuality(result)
	return result, nil
}

// Generator produces guides through chat completions.
type Generator struct {
	client *openai.Client
	cfg    Config
	retry  provider.RetryPolicy
	log    *zap.Logger
}

func NewGenerator(cfg Config, log *zap.Logger) *Generator {
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	return &Generator{
		client: newClient(cfg),
		cfg:    cfg,
		retry:  provider.DefaultRetryPolicy(),
		log:    log.Named("openaiapi"),
	}
}

func (g *Generator) Name() string { return generatorName }

func (g *Generator) Probe(ctx context.Context) provider.Health {
	if g.cfg.APIKey == "" {
		return provider.Health{}
	}
	if _, err := g.client.ListModels(ctx); err != nil {
		g.log.Debug("probe failed", zap.Error(err))
		return provider.Health{}
	}
	return provider.Health{Available: true, ModelPresent: true}
}

func (g *Generator) GenerateGuide(ctx context.Context, transcription string, gctx provider.GuideContext) (string, error) {
	var content string
	err := provider.WithRetry(ctx, g.retry, func() error {
		req := openai.ChatCompletionRequest{
			Model:       g.cfg.ChatModel,
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: guide.SystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: guide.UserPrompt(transcription, gctx)},
			},
		}
		resp, callErr := g.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return classify(generatorName, "generate", callErr)
		}
		if len(resp.Choices) == 0 {
			return &provider.Error{Provider: generatorName, Code: "empty_response", Message: "no choices returned"}
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// classify maps client errors onto the retry taxonomy. HTTP 429 and 5xx are
// transient; 4xx rejections are not. Plain transport errors retry.
func classify(providerName, code string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		retryable := apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
		return &provider.Error{
			Provider:  providerName,
			Code:      code,
			Message:   apiErr.Message,
			Retryable: retryable,
			Err:       err,
		}
	}
	var netErr net.Error
	retryable := errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
	return &provider.Error{
		Provider:  providerName,
		Code:      code,
		Message:   "request failed",
		Retryable: retryable,
		Err:       err,
	}
}
