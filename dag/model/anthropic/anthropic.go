// Package anthropic adapts Anthropic's Messages API to model.LLMClient.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/intentrouter-go/dag/model"
)

// Client implements model.LLMClient against Anthropic's Claude API.
type Client struct {
	apiKey       string
	defaultModel string
	sdk          *anthropicsdk.Client
	pricing      model.PricingLookup
	maxTokens    int64

	model.AuditLog
}

// New returns a Client authenticated with apiKey, defaulting to
// defaultModel when Generate is called without an override.
func New(apiKey, defaultModel string, pricing model.PricingLookup) *Client {
	if defaultModel == "" {
		defaultModel = "claude-3-5-sonnet-20241022"
	}
	sdk := anthropicsdk.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		sdk:          &sdk,
		pricing:      pricing,
		maxTokens:    4096,
	}
}

// Generate implements model.LLMClient.
func (c *Client) Generate(ctx context.Context, prompt string, modelOverride string) (model.RawResponse, error) {
	if c.apiKey == "" {
		return model.RawResponse{}, errors.New("anthropic: api key is required")
	}
	if ctx.Err() != nil {
		return model.RawResponse{}, ctx.Err()
	}

	modelName := modelOverride
	if modelName == "" {
		modelName = c.defaultModel
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(modelName),
		Messages:  []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt))},
		MaxTokens: c.maxTokens,
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("anthropic: api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)
	cost, _ := model.PriceOrZero(c.pricing, modelName, inputTokens, outputTokens)

	out := model.RawResponse{
		Content:      text,
		Model:        modelName,
		Provider:     "anthropic",
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
	}
	c.Record(prompt, out)
	return out, nil
}
