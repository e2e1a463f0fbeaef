package chunk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"video2guide/internal/app/provider"
)

// Slicer extracts one planned window from a source audio file into outPath.
type Slicer interface {
	Slice(ctx context.Context, audioPath string, spec Spec, outPath string) error
}

// AllChunksFailedError is returned when every chunk of a plan failed for one
// provider. It is fatal for that provider within the fallback chain.
type AllChunksFailedError struct {
	Provider string
	Chunks   int
}

func (e *AllChunksFailedError) Error() string {
	return fmt.Sprintf("all %d chunks failed transcription with provider %s", e.Chunks, e.Provider)
}

// Executor drives a chunk plan through one transcription provider. Individual
// chunk failures are recorded and skipped; only total failure is fatal.
type Executor struct {
	slicer  Slicer
	log     *zap.Logger
	workers int
}

// NewExecutor creates an executor. workers bounds concurrent chunk
// transcriptions; values below 2 keep execution sequential.
func NewExecutor(slicer Slicer, log *zap.Logger, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{slicer: slicer, log: log, workers: workers}
}

// Run slices and transcribes every planned chunk, returning results in spec
// order (failed entries included). Cancellation is observed at chunk
// boundaries: in-flight chunks finish, no further chunks are scheduled.
func (e *Executor) Run(ctx context.Context, t provider.Transcriber, audioPath string, specs []Spec) ([]Result, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("empty chunk plan for %s", audioPath)
	}

	tempDir, err := os.MkdirTemp("", "v2g-chunks-")
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk workspace: %w", err)
	}
	defer os.RemoveAll(tempDir)

	results := make([]Result, len(specs))
	if e.workers > 1 {
		e.runParallel(ctx, t, audioPath, specs, tempDir, results)
	} else {
		for i, spec := range specs {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			results[i] = e.runOne(ctx, t, audioPath, spec, tempDir)
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Spec.Index < results[j].Spec.Index })

	succeeded := 0
	for _, r := range results {
		if !r.Failed {
			succeeded++
		}
	}
	e.log.Info("chunk transcription finished",
		zap.String("provider", t.Name()),
		zap.Int("chunks", len(specs)),
		zap.Int("succeeded", succeeded))

	if succeeded == 0 {
		return nil, &AllChunksFailedError{Provider: t.Name(), Chunks: len(specs)}
	}
	return results, nil
}

func (e *Executor) runParallel(ctx context.Context, t provider.Transcriber, audioPath string, specs []Spec, tempDir string, results []Result) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)

	for i, spec := range specs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, spec Spec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.runOne(ctx, t, audioPath, spec, tempDir)
		}(i, spec)
	}
	wg.Wait()
}

func (e *Executor) runOne(ctx context.Context, t provider.Transcriber, audioPath string, spec Spec, tempDir string) Result {
	result := Result{Spec: spec}

	chunkPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%03d.mp3", spec.Index))
	if err := e.slicer.Slice(ctx, audioPath, spec, chunkPath); err != nil {
		e.log.Warn("failed to slice chunk",
			zap.Int("index", spec.Index),
			zap.Float64("start", spec.StartSec),
			zap.Error(err))
		result.Failed = true
		result.ErrorDetail = err.Error()
		return result
	}

	tr, err := t.TranscribeChunk(ctx, chunkPath, spec.DurationSec)
	if err != nil {
		e.log.Warn("chunk transcription failed",
			zap.String("provider", t.Name()),
			zap.Int("index", spec.Index),
			zap.Error(err))
		result.Failed = true
		result.ErrorDetail = err.Error()
		return result
	}

	result.Text = tr.Text
	result.Language = tr.Language
	return result
}
