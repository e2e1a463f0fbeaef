package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpandsEnvVars(t *testing.T) {
	t.Setenv("V2G_TEST_KEY", "sk-from-env")
	t.Setenv("V2G_TEST_URL", "http://whisper.internal:8080")

	cfg, err := Parse([]byte(`
mode: api_transcription
output_dir: out
providers:
  openai:
    api_key: ${V2G_TEST_KEY}
  whisper_server:
    base_url: ${V2G_TEST_URL}
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "http://whisper.internal:8080", cfg.Providers.WhisperServer.BaseURL)
}

func TestParseUnsetEnvVarBecomesEmpty(t *testing.T) {
	cfg, err := Parse([]byte(`
mode: basic
output_dir: out
providers:
  openai:
    api_key: ${V2G_TEST_DEFINITELY_UNSET}
`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers.OpenAI.APIKey)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("mode: basic\noutput_dir: out\n"))
	require.NoError(t, err)

	assert.Equal(t, "data/items.db", cfg.DBPath)
	assert.Equal(t, 0.7, cfg.QualityThreshold)
	assert.Equal(t, "en", cfg.Providers.WhisperCpp.Language)
	assert.Equal(t, "http://localhost:11434", cfg.Providers.Ollama.BaseURL)
	assert.Equal(t, "llama3.2", cfg.Providers.Ollama.Model)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, "medium", cfg.Audio.Quality)
}

func TestParseRejectsInvalidMode(t *testing.T) {
	_, err := Parse([]byte("mode: turbo\noutput_dir: out\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestParseRejectsInvalidURL(t *testing.T) {
	_, err := Parse([]byte(`
mode: basic
output_dir: out
providers:
  ollama:
    base_url: not-a-url
`))
	assert.Error(t, err)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("mode: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: local_ai\noutput_dir: guides-out\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local_ai", cfg.Mode)
	assert.Equal(t, "guides-out", cfg.OutputDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "basic", cfg.Mode)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 0.7, cfg.QualityThreshold)
}
