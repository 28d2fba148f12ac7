package openrouter

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

type stubPricing struct {
	in, out float64
	ok      bool
}

func (s stubPricing) Price(string) (float64, float64, bool) { return s.in, s.out, s.ok }

func newTestServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func TestNew_DefaultsModel(t *testing.T) {
	c := New("key", "", nil)
	assert.Equal(t, "openrouter/auto", c.defaultModel)
}

func TestGenerate_HappyPath(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": "sunny in Rome"}},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	})
	defer srv.Close()

	c := New("key", "openrouter/auto", stubPricing{in: 1, out: 2, ok: true})
	c.baseURL = srv.URL

	resp, err := c.Generate(context.Background(), "what's the weather in Rome?", "")
	require.NoError(t, err)
	assert.Equal(t, "sunny in Rome", resp.Content)
	assert.Equal(t, "openrouter", resp.Provider)
	assert.Equal(t, "openrouter/auto", resp.Model)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 5, resp.OutputTokens)
	assert.InDelta(t, (10.0/1_000_000.0)*1+(5.0/1_000_000.0)*2, resp.CostUSD, 1e-9)

	log := c.GetAuditLog()
	require.Len(t, log, 1)
	assert.Equal(t, "sunny in Rome", log[0].Response)
}

func TestGenerate_ModelOverride(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := New("key", "openrouter/auto", nil)
	c.baseURL = srv.URL
	_, err := c.Generate(context.Background(), "hi", "anthropic/claude-3-opus")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-opus", captured["model"])
}

func TestGenerate_NoPricingYieldsZeroCost(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": "hi"}}},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	})
	defer srv.Close()

	c := New("key", "", nil)
	c.baseURL = srv.URL
	resp, err := c.Generate(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.CostUSD)
}

func TestGenerate_APIErrorObject(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]any{
		"error": map[string]any{"message": "model not found"},
	})
	defer srv.Close()

	c := New("key", "", nil)
	c.baseURL = srv.URL
	_, err := c.Generate(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerate_NonOKStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, map[string]any{})
	defer srv.Close()

	c := New("key", "", nil)
	c.baseURL = srv.URL
	_, err := c.Generate(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGenerate_EmptyChoicesErrors(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]any{"choices": []map[string]any{}})
	defer srv.Close()

	c := New("key", "", nil)
	c.baseURL = srv.URL
	_, err := c.Generate(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestGenerate_RejectsEmptyAPIKey(t *testing.T) {
	c := New("", "openrouter/auto", nil)
	_, err := c.Generate(context.Background(), "hi", "")
	assert.Error(t, err)
}

func TestGenerate_RejectsCancelledContext(t *testing.T) {
	c := New("key", "openrouter/auto", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Generate(ctx, "hi", "")
	assert.Error(t, err)
}

func TestClient_ImplementsLLMClient(t *testing.T) {
	var _ model.LLMClient = New("key", "", nil)
}
