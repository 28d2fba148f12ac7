// Package google adapts Google's Gemini API to model.LLMClient.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/intentrouter-go/dag/model"
)

// Client implements model.LLMClient against Google's Gemini API.
type Client struct {
	apiKey       string
	defaultModel string
	pricing      model.PricingLookup

	model.AuditLog
}

// New returns a Client authenticated with apiKey, defaulting to
// defaultModel when Generate is called without an override.
func New(apiKey, defaultModel string, pricing model.PricingLookup) *Client {
	if defaultModel == "" {
		defaultModel = "gemini-1.5-flash"
	}
	return &Client{apiKey: apiKey, defaultModel: defaultModel, pricing: pricing}
}

// Generate implements model.LLMClient.
func (c *Client) Generate(ctx context.Context, prompt string, modelOverride string) (model.RawResponse, error) {
	if c.apiKey == "" {
		return model.RawResponse{}, errors.New("google: api key is required")
	}
	if ctx.Err() != nil {
		return model.RawResponse{}, ctx.Err()
	}

	modelName := modelOverride
	if modelName == "" {
		modelName = c.defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("google: failed to create client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(modelName)
	resp, err := genModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return model.RawResponse{}, fmt.Errorf("google: api error: %w", err)
	}

	if blocked := blockedCategory(resp); blocked != "" {
		return model.RawResponse{}, &SafetyFilterError{category: blocked}
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				if text != "" {
					text += "\n"
				}
				text += string(t)
			}
		}
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	cost, _ := model.PriceOrZero(c.pricing, modelName, inputTokens, outputTokens)

	out := model.RawResponse{
		Content:      text,
		Model:        modelName,
		Provider:     "google",
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
	}
	c.Record(prompt, out)
	return out, nil
}

func blockedCategory(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonSafety {
		return ""
	}
	for _, rating := range candidate.SafetyRatings {
		if rating.Blocked {
			return rating.Category.String()
		}
	}
	return "SAFETY"
}

// SafetyFilterError reports that Gemini's safety filters blocked the
// response for prompt. Callers can errors.As for it to distinguish a
// content block from an ordinary API failure.
type SafetyFilterError struct {
	category string
}

func (e *SafetyFilterError) Error() string {
	return "google: content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string { return e.category }
