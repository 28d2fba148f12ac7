// Package openai adapts OpenAI's chat completions API to model.LLMClient.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/intentrouter-go/dag/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client implements model.LLMClient against OpenAI's chat completions
// endpoint, with bounded retry on transient errors (timeouts, connection
// resets, 5xx) and exponential backoff on rate limiting.
type Client struct {
	apiKey       string
	defaultModel string
	sdk          *openaisdk.Client
	pricing      model.PricingLookup
	maxRetries   int
	retryDelay   time.Duration

	model.AuditLog
}

// New returns a Client authenticated with apiKey. defaultModel is used
// whenever Generate is called with an empty model override; pricing may
// be nil, in which case every call is recorded at zero cost.
func New(apiKey, defaultModel string, pricing model.PricingLookup) *Client {
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	sdk := openaisdk.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		sdk:          &sdk,
		pricing:      pricing,
		maxRetries:   3,
		retryDelay:   time.Second,
	}
}

// Generate implements model.LLMClient.
func (c *Client) Generate(ctx context.Context, prompt string, modelOverride string) (model.RawResponse, error) {
	if c.apiKey == "" {
		return model.RawResponse{}, errors.New("openai: api key is required")
	}
	if ctx.Err() != nil {
		return model.RawResponse{}, ctx.Err()
	}

	modelName := modelOverride
	if modelName == "" {
		modelName = c.defaultModel
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.complete(ctx, modelName, prompt)
		if err == nil {
			resp.Duration = time.Since(start)
			c.Record(prompt, resp)
			return resp, nil
		}

		lastErr = err
		if !isTransientError(err) && !isRateLimitError(err) {
			return model.RawResponse{}, err
		}
		if attempt >= c.maxRetries {
			break
		}

		delay := c.retryDelay
		if isRateLimitError(err) {
			delay = c.retryDelay * time.Duration(1<<attempt)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.RawResponse{}, ctx.Err()
		}
	}
	return model.RawResponse{}, fmt.Errorf("openai: request failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) complete(ctx context.Context, modelName, prompt string) (model.RawResponse, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(modelName),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(prompt)},
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("openai: api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.RawResponse{}, errors.New("openai: empty choices in response")
	}

	inputTokens := int(resp.Usage.PromptTokens)
	outputTokens := int(resp.Usage.CompletionTokens)
	cost, _ := model.PriceOrZero(c.pricing, modelName, inputTokens, outputTokens)

	return model.RawResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        modelName,
		Provider:     "openai",
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
	}, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "503", "502", "500"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "429") ||
		strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
