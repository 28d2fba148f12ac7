package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/intentrouter-go/dag/model"
)

func TestNew_Defaults(t *testing.T) {
	c := New("", "")
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, "llama3.1", c.defaultModel)
}

func TestNew_RespectsOverrides(t *testing.T) {
	c := New("http://example.local:1234", "mistral")
	assert.Equal(t, "http://example.local:1234", c.baseURL)
	assert.Equal(t, "mistral", c.defaultModel)
}

func TestGenerate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response:   "sunny in Rome",
			PromptEval: 8,
			EvalCount:  4,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "llama3.1")
	resp, err := c.Generate(context.Background(), "what's the weather in Rome?", "")
	require.NoError(t, err)
	assert.Equal(t, "sunny in Rome", resp.Content)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "llama3.1", resp.Model)
	assert.Equal(t, 8, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
}

func TestGenerate_AlwaysZeroCost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "hi", PromptEval: 100, EvalCount: 100})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Generate(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.CostUSD)

	log := c.GetAuditLog()
	require.Len(t, log, 1)
	assert.Equal(t, 0.0, log[0].CostUSD)
}

func TestGenerate_ModelOverride(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "llama3.1")
	_, err := c.Generate(context.Background(), "hi", "mistral")
	require.NoError(t, err)
	assert.Equal(t, "mistral", captured.Model)
}

func TestGenerate_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Generate(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerate_EmptyResponseErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: ""})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Generate(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_RejectsCancelledContext(t *testing.T) {
	c := New("http://localhost:11434", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Generate(ctx, "hi", "")
	assert.Error(t, err)
}

func TestClient_ImplementsLLMClient(t *testing.T) {
	var _ model.LLMClient = New("", "")
}
