package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"video2guide/internal/app/provider"
)

func TestProbeModelPresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{
				{"name": "llama3.2:latest"},
				{"name": "mistral:7b"},
			},
		})
	}))
	defer server.Close()

	g := New(Config{BaseURL: server.URL, Model: "llama3.2"}, zap.NewNop())
	health := g.Probe(context.Background())
	assert.True(t, health.Available)
	assert.True(t, health.ModelPresent)
}

func TestProbeModelMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{{"name": "mistral:7b"}},
		})
	}))
	defer server.Close()

	g := New(Config{BaseURL: server.URL, Model: "llama3.2"}, zap.NewNop())
	health := g.Probe(context.Background())
	assert.True(t, health.Available, "daemon up with model missing is still available")
	assert.False(t, health.ModelPresent)
}

func TestProbeDaemonDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	g := New(Config{BaseURL: server.URL}, zap.NewNop())
	assert.False(t, g.Probe(context.Background()).Available)
}

func TestGenerateGuide(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Response: "# Guide\n\ncontent", Done: true})
	}))
	defer server.Close()

	g := New(Config{BaseURL: server.URL, Model: "llama3.2", Temperature: 0.2, NumPredict: 1024}, zap.NewNop())
	out, err := g.GenerateGuide(context.Background(), "transcript body", provider.GuideContext{Title: "Setup"})
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n\ncontent", out)

	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	assert.NotEmpty(t, got.System)
	assert.Contains(t, got.Prompt, "transcript body")
	assert.Contains(t, got.Prompt, "Setup")
	assert.Equal(t, 0.2, got.Options["temperature"])
	assert.Equal(t, float64(1024), got.Options["num_predict"])
}

func TestGenerateGuideEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "   ", Done: true})
	}))
	defer server.Close()

	g := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := g.GenerateGuide(context.Background(), "text", provider.GuideContext{})
	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "empty_response", pe.Code)
}

func TestGenerateGuideServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer server.Close()

	g := New(Config{BaseURL: server.URL}, zap.NewNop())
	_, err := g.GenerateGuide(context.Background(), "text", provider.GuideContext{})
	require.Error(t, err)
	assert.True(t, provider.IsRetryable(err))
}

func TestGenerateGuideAutoPull(t *testing.T) {
	pulled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]interface{}{"models": []map[string]string{}})
		case "/api/pull":
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "llama3.2", req["name"])
			pulled = true
			json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		case "/api/generate":
			json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
		}
	}))
	defer server.Close()

	g := New(Config{BaseURL: server.URL, Model: "llama3.2", AutoPull: true}, zap.NewNop())

	out, err := g.GenerateGuide(context.Background(), "text", provider.GuideContext{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.True(t, pulled)

	// The pull only ever happens once per process.
	pulled = false
	_, err = g.GenerateGuide(context.Background(), "text", provider.GuideContext{})
	require.NoError(t, err)
	assert.False(t, pulled)
}
