package whisperserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"video2guide/internal/app/provider"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk_000.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mp3 bytes"), 0644))
	return path
}

func TestTranscribeChunkSendsMultipartForm(t *testing.T) {
	var gotModel, gotFormat, gotAuth string
	var gotFile []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		gotAuth = r.Header.Get("Authorization")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotFile = buf[:n]

		json.NewEncoder(w).Encode(inferenceResponse{
			Text:     "  hello from the server  ",
			Language: "en",
			Duration: 42.5,
		})
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL, Model: "whisper-base", APIKey: "secret"}, zap.NewNop())
	result, err := tr.TranscribeChunk(context.Background(), writeTempAudio(t), 45)
	require.NoError(t, err)

	assert.Equal(t, "whisper-base", gotModel)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "fake mp3 bytes", string(gotFile))

	assert.Equal(t, "hello from the server", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.InDelta(t, 42.5, result.Duration, 1e-9)
}

func TestTranscribeChunkDurationHintFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferenceResponse{Text: "text only"})
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL}, zap.NewNop())
	result, err := tr.TranscribeChunk(context.Background(), writeTempAudio(t), 120)
	require.NoError(t, err)
	assert.InDelta(t, 120, result.Duration, 1e-9)
}

func TestTranscribeChunkServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL}, zap.NewNop())
	tr.retry = provider.RetryPolicy{MaxAttempts: 1}

	_, err := tr.TranscribeChunk(context.Background(), writeTempAudio(t), 0)
	require.Error(t, err)
	assert.True(t, provider.IsRetryable(err))
}

func TestTranscribeChunkBadRequestNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := tr.TranscribeChunk(context.Background(), writeTempAudio(t), 0)
	require.Error(t, err)
	assert.False(t, provider.IsRetryable(err))
}

func TestTranscribeChunkEmptyTextRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferenceResponse{Text: ""})
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := tr.TranscribeChunk(context.Background(), writeTempAudio(t), 0)
	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "empty_transcription", pe.Code)
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound) // root path 404 still means the server is up
	}))
	defer server.Close()

	tr := New(Config{BaseURL: server.URL}, zap.NewNop())
	assert.True(t, tr.Probe(context.Background()).Available)

	server.Close()
	down := New(Config{BaseURL: server.URL}, zap.NewNop())
	assert.False(t, down.Probe(context.Background()).Available)

	unconfigured := New(Config{}, zap.NewNop())
	assert.False(t, unconfigured.Probe(context.Background()).Available)
}

func TestLimits(t *testing.T) {
	tr := New(Config{BaseURL: "http://example"}, zap.NewNop())
	lim := tr.Limits()
	assert.Equal(t, 5.0, lim.MaxFileSizeMB)
	assert.Equal(t, 2.0, lim.TargetChunkSizeMB)
	assert.Equal(t, 120.0, lim.MaxChunkDurationSec)
	assert.Equal(t, 10.0, lim.OverlapSec)
	assert.Equal(t, 15.0, lim.MinChunkDurationSec)
	assert.False(t, lim.Unlimited())
}
