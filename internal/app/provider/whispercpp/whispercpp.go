// Package whispercpp runs transcription through a local whisper.cpp binary.
package whispercpp

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"video2guide/internal/app/audio"
	"video2guide/internal/app/model"
	"video2guide/internal/app/provider"
)

const name = "whisper.cpp"

// Transcriber shells out to a whisper.cpp "main" binary. Inference is
// serialized with a mutex: the binary loads the whole model into memory and
// running two at once on one machine thrashes.
type Transcriber struct {
	binaryPath string
	modelPath  string
	language   string
	log        *zap.Logger

	mu sync.Mutex
}

func New(binaryPath, modelPath, language string, log *zap.Logger) *Transcriber {
	return &Transcriber{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		language:   language,
		log:        log.Named("whispercpp"),
	}
}

func (t *Transcriber) Name() string { return name }

// Probe reports available only when both the binary and the model file exist
// on disk.
func (t *Transcriber) Probe(ctx context.Context) provider.Health {
	if _, err := os.Stat(t.binaryPath); err != nil {
		return provider.Health{}
	}
	if _, err := os.Stat(t.modelPath); err != nil {
		return provider.Health{Available: true}
	}
	return provider.Health{Available: true, ModelPresent: true}
}

// Limits reports unlimited: local inference reads from disk, so there is no
// upload cap and no reason to chunk.
func (t *Transcriber) Limits() provider.Limits {
	return provider.Limits{}
}

func (t *Transcriber) TranscribeChunk(ctx context.Context, audioPath string, durationHint float64) (*model.TranscriptionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inputPath := audioPath
	is16k, err := audio.Is16kHzWav(ctx, inputPath)
	if err != nil {
		return nil, &provider.Error{Provider: name, Code: "probe_input", Message: "checking input format", Err: err}
	}
	if !is16k {
		t.log.Debug("converting input to 16kHz wav", zap.String("path", inputPath))
		converted, err := audio.ConvertTo16kHzWav(ctx, inputPath)
		if err != nil {
			return nil, &provider.Error{Provider: name, Code: "convert_input", Message: "converting input to 16kHz wav", Err: err}
		}
		defer os.Remove(converted)
		inputPath = converted
	}

	outDir, err := os.MkdirTemp("", "v2g-whispercpp-")
	if err != nil {
		return nil, &provider.Error{Provider: name, Code: "tempdir", Message: "creating output dir", Err: err}
	}
	defer os.RemoveAll(outDir)
	outBase := filepath.Join(outDir, "out")

	args := []string{
		"-m", t.modelPath,
		"-f", inputPath,
		"-otxt",
		"-of", outBase,
	}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}

	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.log.Debug("running whisper.cpp", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &provider.Error{
			Provider:  name,
			Code:      "exec",
			Message:   "whisper.cpp failed: " + strings.TrimSpace(stderr.String()),
			Retryable: false,
			Err:       err,
		}
	}

	raw, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return nil, &provider.Error{Provider: name, Code: "read_output", Message: "reading transcription output", Err: err}
	}

	result := &model.TranscriptionResult{
		Text:     strings.TrimSpace(string(raw)),
		Language: t.language,
		Duration: durationHint,
	}
	result.SetMeta("provider", name)
	result.SetMeta("model", filepath.Base(t.modelPath))
	result.Quality = model.ComputeQuality(result)
	return result, nil
}
