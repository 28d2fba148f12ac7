// Package ollama adapts a locally running Ollama server to
// model.LLMClient. Like openrouter, no Go SDK for Ollama appears in the
// stack this module was built from, so this client speaks Ollama's
// generate REST API directly.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dshills/intentrouter-go/dag/model"
)

const defaultBaseURL = "http://localhost:11434"

// Client implements model.LLMClient against a local Ollama server.
// Ollama serves models for free, so the client takes no pricing lookup
// and every call is recorded at zero cost.
type Client struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client

	model.AuditLog
}

// New returns a Client pointed at baseURL (empty defaults to
// http://localhost:11434).
func New(baseURL, defaultModel string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if defaultModel == "" {
		defaultModel = "llama3.1"
	}
	return &Client{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response   string `json:"response"`
	PromptEval int    `json:"prompt_eval_count"`
	EvalCount  int    `json:"eval_count"`
}

// Generate implements model.LLMClient.
func (c *Client) Generate(ctx context.Context, prompt string, modelOverride string) (model.RawResponse, error) {
	if ctx.Err() != nil {
		return model.RawResponse{}, ctx.Err()
	}

	modelName := modelOverride
	if modelName == "" {
		modelName = c.defaultModel
	}

	body, err := json.Marshal(generateRequest{Model: modelName, Prompt: prompt, Stream: false})
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("ollama: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return model.RawResponse{}, fmt.Errorf("ollama: server returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return model.RawResponse{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	if parsed.Response == "" {
		return model.RawResponse{}, errors.New("ollama: empty response")
	}

	out := model.RawResponse{
		Content:      parsed.Response,
		Model:        modelName,
		Provider:     "ollama",
		InputTokens:  parsed.PromptEval,
		OutputTokens: parsed.EvalCount,
		CostUSD:      0,
	}
	c.Record(prompt, out)
	return out, nil
}
