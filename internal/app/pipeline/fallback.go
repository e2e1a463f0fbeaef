package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"video2guide/internal/app/audio"
	"video2guide/internal/app/chunk"
	"video2guide/internal/app/model"
	"video2guide/internal/app/provider"
)

// StageFailure is raised when a fallback chain is exhausted. Attempted lists
// every provider tried, in chain order, including those skipped as
// unavailable.
type StageFailure struct {
	Stage     StageKind
	Attempted []string
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("%s stage failed: all providers exhausted [%s]", e.Stage, strings.Join(e.Attempted, ", "))
}

// TranscriptionOutcome carries the merged transcript plus which provider in
// the chain produced it.
type TranscriptionOutcome struct {
	Result       *model.TranscriptionResult
	ProviderUsed string
	Chunks       int
}

// GenerationOutcome is the generation-stage counterpart.
type GenerationOutcome struct {
	Guide        string
	ProviderUsed string
}

// StageRunner executes one stage's fallback chain: probe each adapter in
// order, skip the unavailable, attempt the available, and fall through on
// failure only where the flags permit.
type StageRunner struct {
	flags    FallbackFlags
	executor *chunk.Executor
	probe    func(ctx context.Context, path string) (audio.Info, error)
	log      *zap.Logger
}

func NewStageRunner(flags FallbackFlags, executor *chunk.Executor, log *zap.Logger) *StageRunner {
	return &StageRunner{flags: flags, executor: executor, probe: audio.Probe, log: log.Named("fallback")}
}

// Transcribe runs the transcription chain over audioPath. Chunking is planned
// per provider from its own limits, so a fallthrough from a remote adapter to
// the local model re-plans with no chunking at all.
func (r *StageRunner) Transcribe(ctx context.Context, providers Providers, chain []provider.Transcriber, audioPath string) (*TranscriptionOutcome, error) {
	var attempted []string

	info, err := r.probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probing audio %s: %w", audioPath, err)
	}

	for i, t := range chain {
		attempted = append(attempted, t.Name())

		health := t.Probe(ctx)
		if !health.Available {
			r.log.Warn("provider unavailable, skipping",
				zap.String("provider", t.Name()),
				zap.String("stage", string(StageTranscription)))
			continue
		}

		outcome, err := r.transcribeWith(ctx, t, audioPath, info)
		if err == nil {
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		r.log.Warn("provider failed",
			zap.String("provider", t.Name()),
			zap.String("stage", string(StageTranscription)),
			zap.Error(err))

		if i < len(chain)-1 && !r.allowTranscriptionFallthrough(providers, t, chain[i+1]) {
			r.log.Error("fallthrough not permitted by configuration, failing stage",
				zap.String("provider", t.Name()))
			break
		}
	}

	return nil, &StageFailure{Stage: StageTranscription, Attempted: attempted}
}

func (r *StageRunner) transcribeWith(ctx context.Context, t provider.Transcriber, audioPath string, info audio.Info) (*TranscriptionOutcome, error) {
	specs, err := chunk.Plan(info.DurationSec, info.SizeBytes, t.Limits())
	if err != nil {
		return nil, err
	}

	// A single whole-file window skips slicing and uploads the file as-is.
	if len(specs) == 1 && specs[0].StartSec == 0 {
		result, err := t.TranscribeChunk(ctx, audioPath, info.DurationSec)
		if err != nil {
			return nil, err
		}
		return &TranscriptionOutcome{Result: result, ProviderUsed: t.Name(), Chunks: 1}, nil
	}

	r.log.Info("transcribing in chunks",
		zap.String("provider", t.Name()),
		zap.Int("chunks", len(specs)),
		zap.Float64("duration_sec", info.DurationSec),
		zap.Float64("planned_coverage_sec", specs[len(specs)-1].EndSec()))

	results, err := r.executor.Run(ctx, t, audioPath, specs)
	if err != nil {
		return nil, err
	}

	merged := &model.TranscriptionResult{
		Text:     chunk.Merge(results),
		Duration: info.DurationSec,
	}
	failed := 0
	for _, cr := range results {
		if cr.Failed {
			failed++
		} else if merged.Language == "" {
			merged.Language = cr.Language
		}
	}
	merged.SetMeta("provider", t.Name())
	merged.SetMeta("chunks_total", len(specs))
	merged.SetMeta("chunks_failed", failed)
	merged.Quality = model.ComputeQuality(merged)
	return &TranscriptionOutcome{Result: merged, ProviderUsed: t.Name(), Chunks: len(specs)}, nil
}

func (r *StageRunner) allowTranscriptionFallthrough(providers Providers, failed, next provider.Transcriber) bool {
	// Only the remote-to-local boundary is gated; the local model is always
	// the last transcriber in any chain that contains it, and a failed local
	// model has nowhere left to go.
	if failed == providers.Local {
		return false
	}
	if next == providers.Local {
		return r.flags.TranscriptionRemoteToLocal
	}
	return true
}

// Generate runs the generation chain over the transcript. The template
// generator, when present, is terminal and never fails, so fallthrough
// permission only gates the hop from a failed remote generator to the
// local-AI generator; a denied hop jumps straight to the template.
func (r *StageRunner) Generate(ctx context.Context, providers Providers, chain []provider.GuideGenerator, transcription string, gctx provider.GuideContext) (*GenerationOutcome, error) {
	var attempted []string

	skipNonTerminal := false
	for i, g := range chain {
		terminal := i == len(chain)-1
		if skipNonTerminal && !terminal && g != providers.Template {
			continue
		}
		attempted = append(attempted, g.Name())

		health := g.Probe(ctx)
		if !health.Available {
			r.log.Warn("provider unavailable, skipping",
				zap.String("provider", g.Name()),
				zap.String("stage", string(StageGeneration)))
			continue
		}

		guideText, err := g.GenerateGuide(ctx, transcription, gctx)
		if err == nil {
			return &GenerationOutcome{Guide: guideText, ProviderUsed: g.Name()}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		r.log.Warn("provider failed",
			zap.String("provider", g.Name()),
			zap.String("stage", string(StageGeneration)),
			zap.Error(err))

		if g == providers.Remote2 && !r.flags.GenerationRemoteToLocalAI {
			skipNonTerminal = true
		}
	}

	return nil, &StageFailure{Stage: StageGeneration, Attempted: attempted}
}
