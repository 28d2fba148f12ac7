// Package openrouter adapts OpenRouter's chat completions API (an
// OpenAI-compatible surface proxying many backing models) to
// model.LLMClient. No Go SDK for OpenRouter exists in the stack this
// module was built from, so this client talks to the HTTP API directly.
package openrouter

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

const defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// Client implements model.LLMClient against OpenRouter's REST API.
type Client struct {
	apiKey       string
	defaultModel string
	baseURL      string
	httpClient   *http.Client
	pricing      model.PricingLookup

	model.AuditLog
}

// New returns a Client authenticated with apiKey.
func New(apiKey, defaultModel string, pricing model.PricingLookup) *Client {
	if defaultModel == "" {
		defaultModel = "openrouter/auto"
	}
	return &Client{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pricing:      pricing,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements model.LLMClient.
func (c *Client) Generate(ctx context.Context, prompt string, modelOverride string) (model.RawResponse, error) {
	if c.apiKey == "" {
		return model.RawResponse{}, errors.New("openrouter: api key is required")
	}
	if ctx.Err() != nil {
		return model.RawResponse{}, ctx.Err()
	}

	modelName := modelOverride
	if modelName == "" {
		modelName = c.defaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model:    modelName,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("openrouter: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("openrouter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("openrouter: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return model.RawResponse{}, fmt.Errorf("openrouter: decode response: %w", err)
	}
	if parsed.Error != nil {
		return model.RawResponse{}, fmt.Errorf("openrouter: api error: %s", parsed.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return model.RawResponse{}, fmt.Errorf("openrouter: api returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return model.RawResponse{}, errors.New("openrouter: empty choices in response")
	}

	cost, _ := model.PriceOrZero(c.pricing, modelName, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
	out := model.RawResponse{
		Content:      parsed.Choices[0].Message.Content,
		Model:        modelName,
		Provider:     "openrouter",
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		CostUSD:      cost,
	}
	c.Record(prompt, out)
	return out, nil
}
