package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"video2guide/internal/app/audio"
	"video2guide/internal/app/model"
	"video2guide/internal/app/provider"
	"video2guide/internal/app/repository"
	"video2guide/internal/app/util/files"
)

// ItemState tracks one item through the stage machine.
type ItemState string

const (
	StatePending        ItemState = "pending"
	StateAudioExtracted ItemState = "audio_extracted"
	StateTranscribed    ItemState = "transcribed"
	StateGuideGenerated ItemState = "guide_generated"
	StateDone           ItemState = "done"
	StateFailed         ItemState = "failed"
)

// Options are the per-run orchestrator settings. Language is the expected
// transcription language, used only for validation warnings.
type Options struct {
	Mode                 ProcessingMode
	OutputDir            string
	Overwrite            bool
	PreserveIntermediate bool
	ShowProgress         bool
	QualityThreshold     float64
	Language             string
}

// minTranscriptChars is the length below which a transcript draws a
// validation warning.
const minTranscriptChars = 50

// ItemResult is the per-item outcome reported in the batch summary.
type ItemResult struct {
	Name                  string
	State                 ItemState
	TranscriptionProvider string
	GenerationProvider    string
	QualityScore          float64
	DurationSec           float64
	GuidePath             string
	Err                   error
}

// Summary aggregates a batch run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Items     []ItemResult
}

// Pipeline orchestrates extract, transcribe, generate, and persist for each
// item. Providers, logger, and storage handles are constructed once and owned
// here for the life of the run.
type Pipeline struct {
	providers Providers
	runner    *StageRunner
	extractor *audio.Extractor
	dao       repository.ItemDAO
	log       *zap.Logger
	opts      Options
}

func New(providers Providers, runner *StageRunner, extractor *audio.Extractor, dao repository.ItemDAO, log *zap.Logger, opts Options) *Pipeline {
	if opts.QualityThreshold == 0 {
		opts.QualityThreshold = 0.7
	}
	return &Pipeline{
		providers: providers,
		runner:    runner,
		extractor: extractor,
		dao:       dao,
		log:       log.Named("pipeline"),
		opts:      opts,
	}
}

func (p *Pipeline) Close() error {
	if p.dao != nil {
		return p.dao.Close()
	}
	return nil
}

type itemPaths struct {
	audio        string
	transcript   string
	detailedJSON string
	guide        string
}

func (p *Pipeline) pathsFor(mediaPath string) itemPaths {
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	return itemPaths{
		audio:        filepath.Join(p.opts.OutputDir, "audio", base+".mp3"),
		transcript:   filepath.Join(p.opts.OutputDir, "transcriptions", base+".txt"),
		detailedJSON: filepath.Join(p.opts.OutputDir, "transcriptions", base+"_detailed.json"),
		guide:        filepath.Join(p.opts.OutputDir, "guides", base+"_guide.md"),
	}
}

// ProcessItem runs one media file through the full stage machine. A stage
// failure marks only this item failed.
func (p *Pipeline) ProcessItem(ctx context.Context, mediaPath string) ItemResult {
	name := filepath.Base(mediaPath)
	result := ItemResult{Name: name, State: StatePending}
	paths := p.pathsFor(mediaPath)

	audioPath, extracted, err := p.extractStage(ctx, mediaPath, paths)
	if err != nil {
		result.State = StateFailed
		result.Err = fmt.Errorf("audio extraction: %w", err)
		return result
	}
	result.State = StateAudioExtracted

	transcript, outcome, err := p.transcribeStage(ctx, audioPath, paths)
	if err != nil {
		result.State = StateFailed
		result.Err = err
		return result
	}
	result.State = StateTranscribed
	if outcome != nil {
		result.TranscriptionProvider = outcome.ProviderUsed
		result.QualityScore = outcome.Result.Quality.ConfidenceScore
		result.DurationSec = outcome.Result.EstimatedDuration()
		p.warnOnLowQuality(name, outcome.Result)
	}

	genOutcome, err := p.generateStage(ctx, transcript, mediaPath, paths)
	if err != nil {
		result.State = StateFailed
		result.Err = err
		return result
	}
	result.State = StateGuideGenerated
	if genOutcome != nil {
		result.GenerationProvider = genOutcome.ProviderUsed
	}
	result.GuidePath = paths.guide

	// Only audio produced by this run is removed; reused artifacts from an
	// earlier run stay in place.
	if !p.opts.PreserveIntermediate && extracted {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			p.log.Warn("failed to remove intermediate audio", zap.String("path", audioPath), zap.Error(err))
		}
	}

	result.State = StateDone
	return result
}

// extractStage produces the audio input for transcription. Audio inputs pass
// through untouched; video inputs are extracted unless the artifact already
// exists and overwrite is off. The bool reports whether this run produced the
// audio file.
func (p *Pipeline) extractStage(ctx context.Context, mediaPath string, paths itemPaths) (string, bool, error) {
	ext := strings.ToLower(filepath.Ext(mediaPath))
	for _, audioExt := range files.AudioExtensions {
		if ext == audioExt {
			return mediaPath, false, nil
		}
	}

	if !p.opts.Overwrite {
		if info, err := os.Stat(paths.audio); err == nil && info.Size() > 0 {
			p.log.Info("audio exists, skipping extraction", zap.String("path", paths.audio))
			return paths.audio, false, nil
		}
	}

	if err := files.EnsureDir(filepath.Dir(paths.audio)); err != nil {
		return "", false, err
	}
	if err := p.extractor.Extract(ctx, mediaPath, paths.audio); err != nil {
		return "", false, err
	}
	return paths.audio, true, nil
}

func (p *Pipeline) transcribeStage(ctx context.Context, audioPath string, paths itemPaths) (string, *TranscriptionOutcome, error) {
	if !p.opts.Overwrite {
		if data, err := os.ReadFile(paths.transcript); err == nil && len(data) > 0 {
			p.log.Info("transcript exists, skipping transcription", zap.String("path", paths.transcript))
			return string(data), nil, nil
		}
	}

	chain := p.providers.TranscriptionChain(p.opts.Mode)
	outcome, err := p.runner.Transcribe(ctx, p.providers, chain, audioPath)
	if err != nil {
		return "", nil, err
	}

	issues := model.Validate(outcome.Result, model.ValidationOptions{
		MinLength:     minTranscriptChars,
		MinConfidence: p.opts.QualityThreshold,
		Language:      p.opts.Language,
	})
	if len(issues) > 0 {
		outcome.Result.SetMeta("validation_issues", issues)
		p.log.Warn("transcription validation issues",
			zap.String("path", audioPath),
			zap.Strings("issues", issues))
	}

	if err := files.WriteFileAtomic(paths.transcript, []byte(outcome.Result.Text)); err != nil {
		return "", nil, err
	}
	if err := p.writeDetailedSidecar(paths.detailedJSON, outcome); err != nil {
		return "", nil, err
	}
	return outcome.Result.Text, outcome, nil
}

func (p *Pipeline) generateStage(ctx context.Context, transcript, mediaPath string, paths itemPaths) (*GenerationOutcome, error) {
	if !p.opts.Overwrite {
		if info, err := os.Stat(paths.guide); err == nil && info.Size() > 0 {
			p.log.Info("guide exists, skipping generation", zap.String("path", paths.guide))
			return nil, nil
		}
	}

	gctx := provider.GuideContext{
		Title: strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath)),
	}
	chain := p.providers.GenerationChain(p.opts.Mode)
	outcome, err := p.runner.Generate(ctx, p.providers, chain, transcript, gctx)
	if err != nil {
		return nil, err
	}

	if err := files.WriteFileAtomic(paths.guide, []byte(outcome.Guide)); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (p *Pipeline) writeDetailedSidecar(path string, outcome *TranscriptionOutcome) error {
	sidecar := struct {
		Text     string                 `json:"text"`
		Language string                 `json:"language,omitempty"`
		Duration float64                `json:"duration,omitempty"`
		Provider string                 `json:"provider"`
		Chunks   int                    `json:"chunks"`
		Quality  model.QualityMetrics   `json:"quality"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}{
		Text:     outcome.Result.Text,
		Language: outcome.Result.Language,
		Duration: outcome.Result.EstimatedDuration(),
		Provider: outcome.ProviderUsed,
		Chunks:   outcome.Chunks,
		Quality:  outcome.Result.Quality,
		Metadata: outcome.Result.Metadata,
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	return files.WriteFileAtomic(path, data)
}

func (p *Pipeline) warnOnLowQuality(name string, result *model.TranscriptionResult) {
	if result.Quality.ConfidenceScore < p.opts.QualityThreshold {
		p.log.Warn("transcription quality below threshold",
			zap.String("item", name),
			zap.Float64("score", result.Quality.ConfidenceScore),
			zap.Float64("threshold", p.opts.QualityThreshold),
			zap.String("category", string(result.Quality.AccuracyCategory)))
	}
}

// RunBatch processes every matching file in inputDir sequentially. A single
// item's failure never halts the batch; cancellation stops scheduling after
// the in-flight item completes.
func (p *Pipeline) RunBatch(ctx context.Context, inputDir string, limit int) (*Summary, error) {
	if err := p.providers.ValidateStartup(ctx, p.opts.Mode, p.runner.flags); err != nil {
		return nil, err
	}

	exts := append(append([]string{}, files.VideoExtensions...), files.AudioExtensions...)
	found, err := files.FindMediaFiles(inputDir, exts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: uuid.NewString()}
	var toProcess []files.MediaFile
	for _, f := range found {
		if id, err := p.dao.CheckIfProcessed(f.Name); err == nil {
			p.log.Info("already processed, skipping",
				zap.String("file", f.Name), zap.Int64("record_id", id))
			summary.Skipped++
			continue
		}
		toProcess = append(toProcess, f)
		if limit > 0 && len(toProcess) >= limit {
			break
		}
	}
	summary.Total = len(toProcess)

	pm := NewProgressManager(p.opts.ShowProgress, os.Stderr)
	bar := pm.CreateBar(len(toProcess), "processing")

	for _, f := range toProcess {
		if ctx.Err() != nil {
			p.log.Info("batch cancelled", zap.Int("remaining", summary.Total-len(summary.Items)))
			break
		}

		p.log.Info("processing item", zap.String("file", f.Name), zap.String("mode", string(p.opts.Mode)))
		item := p.ProcessItem(ctx, f.FullPath)
		summary.Items = append(summary.Items, item)
		if item.State == StateDone {
			summary.Succeeded++
		} else {
			summary.Failed++
			p.log.Error("item failed", zap.String("file", f.Name), zap.Error(item.Err))
		}
		p.record(summary.RunID, inputDir, f, item)
		bar.Increment()
	}

	bar.Complete()
	pm.Wait()

	if recs, err := p.dao.ListByRun(summary.RunID); err != nil {
		p.log.Warn("failed to read back run records", zap.String("run_id", summary.RunID), zap.Error(err))
	} else {
		p.log.Info("run recorded", zap.String("run_id", summary.RunID), zap.Int("records", len(recs)))
	}
	return summary, nil
}

func (p *Pipeline) record(runID, inputDir string, f files.MediaFile, item ItemResult) {
	rec := repository.ItemRecord{
		RunID:                 runID,
		FileName:              f.Name,
		InputDir:              inputDir,
		Mode:                  string(p.opts.Mode),
		TranscriptionProvider: item.TranscriptionProvider,
		GenerationProvider:    item.GenerationProvider,
		QualityScore:          item.QualityScore,
		DurationSec:           item.DurationSec,
		ProcessedAt:           time.Now(),
	}
	if item.State != StateDone {
		rec.HasError = 1
		if item.Err != nil {
			rec.ErrorMessage = item.Err.Error()
		}
	}
	if err := p.dao.Record(rec); err != nil {
		p.log.Warn("failed to record item", zap.String("file", f.Name), zap.Error(err))
	}
}
