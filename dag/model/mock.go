package model

import (
	"context"
	"sync"
)

// MockClient is a test LLMClient: configurable canned replies, optional
// error injection, and call-history tracking, so node tests never make a
// live LLM call.
type MockClient struct {
	// Responses is returned in order, one per call; once exhausted the
	// last response repeats.
	Responses []RawResponse

	// Err, if set, is returned instead of a response.
	Err error

	// Calls records every prompt passed to Generate.
	Calls []string

	AuditLog

	mu        sync.Mutex
	callIndex int
}

// Generate implements LLMClient.
func (m *MockClient) Generate(ctx context.Context, prompt string, model string) (RawResponse, error) {
	if ctx.Err() != nil {
		return RawResponse{}, ctx.Err()
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		err := m.Err
		m.mu.Unlock()
		return RawResponse{}, err
	}
	if len(m.Responses) == 0 {
		m.mu.Unlock()
		return RawResponse{}, nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	resp := m.Responses[idx]
	m.mu.Unlock()

	if resp.Model == "" {
		resp.Model = model
	}
	m.Record(prompt, resp)
	return resp, nil
}
