package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"video2guide/internal/app/audio"
	"video2guide/internal/app/provider"
)

func newTestRunner(flags FallbackFlags) *StageRunner {
	r := NewStageRunner(flags, nil, zap.NewNop())
	r.probe = func(ctx context.Context, path string) (audio.Info, error) {
		return audio.Info{DurationSec: 300, SizeBytes: 4 << 20}, nil
	}
	return r
}

func TestTranscribeFallsToLocalWhenRemoteProbeFails(t *testing.T) {
	p := fullProviders()
	p.Remote = []provider.Transcriber{
		&stubTranscriber{name: "remote-a", available: false},
		&stubTranscriber{name: "remote-b", available: false},
	}
	r := newTestRunner(FallbackFlags{})

	outcome, err := r.Transcribe(context.Background(), p, p.TranscriptionChain(ModeHybrid), "audio.mp3")
	require.NoError(t, err)
	assert.Equal(t, "local", outcome.ProviderUsed)
	assert.Equal(t, "local text", outcome.Result.Text)
}

func TestTranscribeAllUnavailableNamesEveryProvider(t *testing.T) {
	p := fullProviders()
	p.Local = &stubTranscriber{name: "local", available: false}
	p.Remote = []provider.Transcriber{
		&stubTranscriber{name: "remote-a", available: false},
		&stubTranscriber{name: "remote-b", available: false},
	}
	r := newTestRunner(FallbackFlags{})

	_, err := r.Transcribe(context.Background(), p, p.TranscriptionChain(ModeFullAPI), "audio.mp3")
	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageTranscription, failure.Stage)
	assert.Equal(t, []string{"remote-a", "remote-b", "local"}, failure.Attempted)
}

func TestTranscribeRemoteFailureFallsThroughWhenPermitted(t *testing.T) {
	p := fullProviders()
	p.Remote = []provider.Transcriber{
		&stubTranscriber{name: "remote-a", available: true, model: true,
			err: &provider.Error{Provider: "remote-a", Code: "boom", Message: "server exploded"}},
	}
	r := newTestRunner(FallbackFlags{TranscriptionRemoteToLocal: true})

	outcome, err := r.Transcribe(context.Background(), p, p.TranscriptionChain(ModeHybrid), "audio.mp3")
	require.NoError(t, err)
	assert.Equal(t, "local", outcome.ProviderUsed)
}

func TestTranscribeRemoteFailureStopsWhenNotPermitted(t *testing.T) {
	p := fullProviders()
	p.Remote = []provider.Transcriber{
		&stubTranscriber{name: "remote-a", available: true, model: true,
			err: &provider.Error{Provider: "remote-a", Code: "boom", Message: "server exploded"}},
	}
	r := newTestRunner(FallbackFlags{TranscriptionRemoteToLocal: false})

	_, err := r.Transcribe(context.Background(), p, p.TranscriptionChain(ModeHybrid), "audio.mp3")
	var failure *StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, []string{"remote-a"}, failure.Attempted, "local must not be attempted")
}

func TestTranscribeRemoteToRemoteAlwaysAllowed(t *testing.T) {
	p := fullProviders()
	p.Remote = []provider.Transcriber{
		&stubTranscriber{name: "remote-a", available: true, model: true,
			err: &provider.Error{Provider: "remote-a", Code: "boom", Message: "server exploded"}},
		&stubTranscriber{name: "remote-b", available: true, model: true},
	}
	r := newTestRunner(FallbackFlags{TranscriptionRemoteToLocal: false})

	outcome, err := r.Transcribe(context.Background(), p, p.TranscriptionChain(ModeHybrid), "audio.mp3")
	require.NoError(t, err)
	assert.Equal(t, "remote-b", outcome.ProviderUsed, "the flag only gates the hop onto the local model")
}

func TestGenerateUsesFirstAvailable(t *testing.T) {
	p := fullProviders()
	r := newTestRunner(FallbackFlags{GenerationRemoteToLocalAI: true})

	outcome, err := r.Generate(context.Background(), p, p.GenerationChain(ModeHybrid), "transcript", provider.GuideContext{})
	require.NoError(t, err)
	assert.Equal(t, "remote-gen", outcome.ProviderUsed)
}

func TestGenerateFallsToLocalAIWhenPermitted(t *testing.T) {
	p := fullProviders()
	p.Remote2 = &stubGenerator{name: "remote-gen", available: true,
		err: &provider.Error{Provider: "remote-gen", Code: "rate_limited", Message: "429"}}
	r := newTestRunner(FallbackFlags{GenerationRemoteToLocalAI: true})

	outcome, err := r.Generate(context.Background(), p, p.GenerationChain(ModeHybrid), "transcript", provider.GuideContext{})
	require.NoError(t, err)
	assert.Equal(t, "local-llm", outcome.ProviderUsed)
}

func TestGenerateSkipsLocalAIWhenNotPermitted(t *testing.T) {
	p := fullProviders()
	p.Remote2 = &stubGenerator{name: "remote-gen", available: true,
		err: &provider.Error{Provider: "remote-gen", Code: "rate_limited", Message: "429"}}
	r := newTestRunner(FallbackFlags{GenerationRemoteToLocalAI: false})

	outcome, err := r.Generate(context.Background(), p, p.GenerationChain(ModeHybrid), "transcript", provider.GuideContext{})
	require.NoError(t, err)
	assert.Equal(t, "template", outcome.ProviderUsed, "a denied hop jumps straight to the template terminal")
}

func TestGenerateTemplateIsTerminalFallback(t *testing.T) {
	p := fullProviders()
	p.Remote2 = &stubGenerator{name: "remote-gen", available: false}
	p.LocalLLM = &stubGenerator{name: "local-llm", available: false}
	r := newTestRunner(FallbackFlags{GenerationRemoteToLocalAI: true})

	outcome, err := r.Generate(context.Background(), p, p.GenerationChain(ModeHybrid), "transcript", provider.GuideContext{})
	require.NoError(t, err)
	assert.Equal(t, "template", outcome.ProviderUsed)
}
