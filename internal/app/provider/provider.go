package provider

import (
	"context"

	"video2guide/internal/app/model"
)

// Health is the transient result of probing a provider. It is never
// persisted; chain execution re-probes before every attempt.
type Health struct {
	Available    bool
	ModelPresent bool
}

// Limits describes a transcription backend's upload constraints, used by the
// chunk planner to size windows. A MaxFileSizeMB of zero means unlimited and
// disables chunking entirely.
type Limits struct {
	MaxFileSizeMB       float64
	TargetChunkSizeMB   float64
	MaxChunkDurationSec float64
	OverlapSec          float64
	MinChunkDurationSec float64
}

// Unlimited reports whether the backend accepts files of any size.
func (l Limits) Unlimited() bool {
	return l.MaxFileSizeMB <= 0
}

// Transcriber is the transcription capability. Implementations receive audio
// as file paths because every backend here (local binary, multipart upload)
// ultimately consumes a file on disk.
type Transcriber interface {
	Name() string

	// Probe checks availability without side effects. It must not return an
	// error; any failure maps to Health{Available: false}.
	Probe(ctx context.Context) Health

	Limits() Limits

	// TranscribeChunk transcribes one audio file (a whole file or a planned
	// chunk). durationHint is the window length in seconds, zero if unknown.
	TranscribeChunk(ctx context.Context, audioPath string, durationHint float64) (*model.TranscriptionResult, error)
}

// GuideContext carries optional item context into guide generation prompts.
type GuideContext struct {
	Title       string
	Description string
	Metadata    map[string]interface{}
}

// GuideGenerator is the guide-generation capability.
type GuideGenerator interface {
	Name() string
	Probe(ctx context.Context) Health
	GenerateGuide(ctx context.Context, transcription string, gctx GuideContext) (string, error)
}
