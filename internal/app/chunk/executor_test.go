package chunk

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"video2guide/internal/app/model"
	"video2guide/internal/app/provider"
)

type fakeSlicer struct {
	mu     sync.Mutex
	failAt map[int]bool
	calls  int
}

func (s *fakeSlicer) Slice(ctx context.Context, audioPath string, spec Spec, outPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAt[spec.Index] {
		return fmt.Errorf("ffmpeg exited with status 1")
	}
	return nil
}

type fakeTranscriber struct {
	mu     sync.Mutex
	failAt map[int]bool
	texts  map[int]string
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Probe(ctx context.Context) provider.Health {
	return provider.Health{Available: true, ModelPresent: true}
}

func (f *fakeTranscriber) Limits() provider.Limits { return provider.Limits{} }

func (f *fakeTranscriber) TranscribeChunk(ctx context.Context, audioPath string, durationHint float64) (*model.TranscriptionResult, error) {
	var index int
	_, err := fmt.Sscanf(filepath.Base(audioPath), "chunk_%03d.mp3", &index)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt[index] {
		return nil, &provider.Error{Provider: "fake", Code: "boom", Message: "transcription failed"}
	}
	text, okText := f.texts[index]
	if !okText {
		text = fmt.Sprintf("chunk %d text", index)
	}
	return &model.TranscriptionResult{Text: text}, nil
}

func specsOf(n int) []Spec {
	specs := make([]Spec, n)
	for i := range specs {
		specs[i] = Spec{Index: i, StartSec: float64(i) * 110, DurationSec: 120}
	}
	return specs
}

func TestExecutorRunSequential(t *testing.T) {
	exec := NewExecutor(&fakeSlicer{}, zap.NewNop(), 1)
	results, err := exec.Run(context.Background(), &fakeTranscriber{}, "in.mp3", specsOf(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Spec.Index)
		assert.False(t, r.Failed)
		assert.Equal(t, fmt.Sprintf("chunk %d text", i), r.Text)
	}
}

func TestExecutorRunParallelKeepsOrder(t *testing.T) {
	exec := NewExecutor(&fakeSlicer{}, zap.NewNop(), 4)
	results, err := exec.Run(context.Background(), &fakeTranscriber{}, "in.mp3", specsOf(8))
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		assert.Equal(t, i, r.Spec.Index, "results must come back in spec order")
	}
}

func TestExecutorAbsorbsPartialFailures(t *testing.T) {
	slicer := &fakeSlicer{failAt: map[int]bool{1: true}}
	tr := &fakeTranscriber{failAt: map[int]bool{3: true}}
	exec := NewExecutor(slicer, zap.NewNop(), 1)

	results, err := exec.Run(context.Background(), tr, "in.mp3", specsOf(4))
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.False(t, results[0].Failed)
	assert.True(t, results[1].Failed, "slice failure marks the chunk failed")
	assert.NotEmpty(t, results[1].ErrorDetail)
	assert.False(t, results[2].Failed)
	assert.True(t, results[3].Failed, "transcription failure marks the chunk failed")
}

func TestExecutorAllChunksFailed(t *testing.T) {
	tr := &fakeTranscriber{failAt: map[int]bool{0: true, 1: true}}
	exec := NewExecutor(&fakeSlicer{}, zap.NewNop(), 1)

	_, err := exec.Run(context.Background(), tr, "in.mp3", specsOf(2))
	var allFailed *AllChunksFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, "fake", allFailed.Provider)
	assert.Equal(t, 2, allFailed.Chunks)
}

func TestExecutorEmptyPlan(t *testing.T) {
	exec := NewExecutor(&fakeSlicer{}, zap.NewNop(), 1)
	_, err := exec.Run(context.Background(), &fakeTranscriber{}, "in.mp3", nil)
	assert.Error(t, err)
}

func TestExecutorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewExecutor(&fakeSlicer{}, zap.NewNop(), 1)
	_, err := exec.Run(ctx, &fakeTranscriber{}, "in.mp3", specsOf(3))
	assert.True(t, errors.Is(err, context.Canceled))
}
