// Package model defines the LLM client capability that classifier and
// extractor nodes call through, plus the provider adapters implementing
// it (openai, anthropic, google, openrouter, ollama) and an in-process
// audit log.
package model

import (
	"context"
	"sync"
	"time"
)

// LLMClient is the single capability classifier and extractor nodes
// need from an LLM backend: turn a prompt into text. Every provider
// adapter in this package implements it; a node's "llm_service" context
// entry is typed as this interface.
type LLMClient interface {
	// Generate sends prompt to the backend and returns its reply. model
	// overrides the client's configured default model when non-empty.
	Generate(ctx context.Context, prompt string, model string) (RawResponse, error)

	// GetAuditLog returns every Generate call recorded so far, in order.
	GetAuditLog() []AuditEntry

	// ClearAuditLog discards recorded audit entries.
	ClearAuditLog()
}

// RawResponse is a provider-agnostic LLM reply.
type RawResponse struct {
	Content      string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
	Metadata     map[string]any
}

// AuditEntry records one completed Generate call for later inspection —
// compliance review, debugging, or cost reconciliation.
type AuditEntry struct {
	Timestamp time.Time
	Prompt    string
	Response  string
	Model     string
	Provider  string
	Tokens    int
	CostUSD   float64
	Duration  time.Duration
}

// AuditLog is an in-memory, thread-safe append log embeddable by every
// provider adapter so they don't each reimplement locking.
type AuditLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
}

// Record appends an entry built from a completed call.
func (a *AuditLog) Record(prompt string, resp RawResponse) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, AuditEntry{
		Timestamp: time.Now(),
		Prompt:    prompt,
		Response:  resp.Content,
		Model:     resp.Model,
		Provider:  resp.Provider,
		Tokens:    resp.InputTokens + resp.OutputTokens,
		CostUSD:   resp.CostUSD,
		Duration:  resp.Duration,
	})
}

// GetAuditLog returns a copy of every recorded entry.
func (a *AuditLog) GetAuditLog() []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// ClearAuditLog discards every recorded entry.
func (a *AuditLog) ClearAuditLog() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
}

// PricingLookup resolves a model name to USD-per-1M-token input/output
// pricing. Provider adapters consult one to compute RawResponse.CostUSD;
// a nil PricingLookup (or a miss) yields zero cost, matching the "missing
// pricing yields zero cost" rule.
type PricingLookup interface {
	Price(model string) (inputPer1M, outputPer1M float64, ok bool)
}

// CostCalculator implements PricingLookup against a flat map, typically
// loaded from a pricing file (see routerconfig) or seeded with the same
// defaults dag.CostTracker uses.
type CostCalculator struct {
	mu      sync.RWMutex
	pricing map[string][2]float64
}

// NewCostCalculator returns a CostCalculator with no entries.
func NewCostCalculator() *CostCalculator {
	return &CostCalculator{pricing: make(map[string][2]float64)}
}

// SetPrice registers pricing for model.
func (c *CostCalculator) SetPrice(model string, inputPer1M, outputPer1M float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pricing[model] = [2]float64{inputPer1M, outputPer1M}
}

// Price implements PricingLookup.
func (c *CostCalculator) Price(model string) (inputPer1M, outputPer1M float64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pricing[model]
	if !ok {
		return 0, 0, false
	}
	return p[0], p[1], true
}

// Cost computes the USD cost of a call, returning 0 and a warning-worthy
// false when model has no registered price.
func (c *CostCalculator) Cost(model string, inputTokens, outputTokens int) (cost float64, priced bool) {
	inPrice, outPrice, ok := c.Price(model)
	if !ok {
		return 0, false
	}
	return (float64(inputTokens)/1_000_000.0)*inPrice + (float64(outputTokens)/1_000_000.0)*outPrice, true
}

// PriceOrZero looks up cost against lookup, tolerating a nil lookup —
// the "missing pricing yields zero cost" rule provider adapters share.
func PriceOrZero(lookup PricingLookup, modelName string, inputTokens, outputTokens int) (cost float64, priced bool) {
	if lookup == nil {
		return 0, false
	}
	inPrice, outPrice, ok := lookup.Price(modelName)
	if !ok {
		return 0, false
	}
	return (float64(inputTokens)/1_000_000.0)*inPrice + (float64(outputTokens)/1_000_000.0)*outPrice, true
}
