package pipeline

import (
	"context"
	"fmt"
	"strings"

	"video2guide/internal/app/provider"
)

// ProcessingMode selects which fallback chains apply to a run.
type ProcessingMode string

const (
	ModeBasic            ProcessingMode = "basic"
	ModeLocalAI          ProcessingMode = "local_ai"
	ModeAPITranscription ProcessingMode = "api_transcription"
	ModeAPIGeneration    ProcessingMode = "api_generation"
	ModeFullAPI          ProcessingMode = "full_api"
	ModeHybrid           ProcessingMode = "hybrid"
)

// StageKind identifies a pipeline stage for chain selection and failure
// reporting.
type StageKind string

const (
	StageTranscription StageKind = "transcription"
	StageGeneration    StageKind = "generation"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (ProcessingMode, error) {
	mode := ProcessingMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case ModeBasic, ModeLocalAI, ModeAPITranscription, ModeAPIGeneration, ModeFullAPI, ModeHybrid:
		return mode, nil
	}
	return "", &ConfigurationError{
		Field:   "mode",
		Message: fmt.Sprintf("unknown processing mode %q (valid: basic, local_ai, api_transcription, api_generation, full_api, hybrid)", s),
	}
}

// ConfigurationError is fatal at startup, before any item is processed.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// FallbackFlags are the per-pair fallthrough permissions. A false flag means
// a provider failure (after probe succeeded) fails the stage instead of
// trying the next adapter. Probe failures always skip to the next adapter,
// and the template generator, having no failure mode, is always reachable.
type FallbackFlags struct {
	TranscriptionRemoteToLocal bool
	GenerationRemoteToLocalAI  bool
}

// Providers is the full set of constructed adapters handed to the
// orchestrator. Remote transcribers are in priority order; nil slots mean
// the backend was not configured.
type Providers struct {
	Local    provider.Transcriber
	Remote   []provider.Transcriber
	LocalLLM provider.GuideGenerator
	Remote2  provider.GuideGenerator
	Template provider.GuideGenerator
}

// TranscriptionChain resolves the mode's transcription chain, skipping
// unconfigured slots.
func (p Providers) TranscriptionChain(mode ProcessingMode) []provider.Transcriber {
	var chain []provider.Transcriber
	appendLocal := func() {
		if p.Local != nil {
			chain = append(chain, p.Local)
		}
	}
	appendRemote := func() {
		chain = append(chain, p.Remote...)
	}

	switch mode {
	case ModeBasic, ModeLocalAI, ModeAPIGeneration:
		appendLocal()
	case ModeAPITranscription, ModeFullAPI, ModeHybrid:
		appendRemote()
		appendLocal()
	}
	return chain
}

// GenerationChain resolves the mode's generation chain. Template is always
// terminal.
func (p Providers) GenerationChain(mode ProcessingMode) []provider.GuideGenerator {
	var chain []provider.GuideGenerator
	add := func(g provider.GuideGenerator) {
		if g != nil {
			chain = append(chain, g)
		}
	}

	switch mode {
	case ModeBasic, ModeAPITranscription:
	case ModeLocalAI:
		add(p.LocalLLM)
	case ModeAPIGeneration, ModeFullAPI:
		add(p.Remote2)
	case ModeHybrid:
		add(p.Remote2)
		add(p.LocalLLM)
	}
	add(p.Template)
	return chain
}

// ValidateStartup enforces chain viability before any item is processed.
//
// basic mode has no transcription fallback, so the local model must be
// present up front. api_generation mode never constructs the local-LLM
// generator; asking for local-AI fallback in that mode is a contradiction,
// rejected here instead of silently narrowing the chain.
func (p Providers) ValidateStartup(ctx context.Context, mode ProcessingMode, flags FallbackFlags) error {
	if len(p.TranscriptionChain(mode)) == 0 {
		return &ConfigurationError{
			Field:   "providers",
			Message: fmt.Sprintf("mode %s has an empty transcription chain: no matching provider configured", mode),
		}
	}
	if len(p.GenerationChain(mode)) == 0 {
		return &ConfigurationError{
			Field:   "providers",
			Message: fmt.Sprintf("mode %s has an empty generation chain", mode),
		}
	}

	if mode == ModeBasic || mode == ModeLocalAI || mode == ModeAPIGeneration {
		health := p.Local.Probe(ctx)
		if !health.Available || !health.ModelPresent {
			return &ConfigurationError{
				Field:   "providers.local",
				Message: fmt.Sprintf("mode %s requires the local transcription model and it is not available", mode),
			}
		}
	}

	if mode == ModeAPIGeneration && flags.GenerationRemoteToLocalAI {
		return &ConfigurationError{
			Field:   "fallback.generation_remote_to_local_ai",
			Message: "api_generation mode has no local-AI generator; remove the fallback flag or use hybrid mode",
		}
	}
	return nil
}
