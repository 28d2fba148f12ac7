package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/dshills/intentrouter-go/dag"
	"github.com/dshills/intentrouter-go/dag/model"
)

// fuzzyDistanceThreshold is the maximum normalized Levenshtein distance
// (edit distance / max(len(a), len(b))) a label may have from the reply
// and still be accepted as a fuzzy match.
const fuzzyDistanceThreshold = 0.25

// ClassificationFunc is a deterministic classifier override: given the
// input and a read-only context, return the chosen label (or "" for no
// match).
type ClassificationFunc func(ctx context.Context, input string, rc *dag.Context) (string, error)

// LLMConfig names the model a classifier or extractor node passes to its
// LLM client. The Resolver falls back to dag.metadata.default_llm_config
// when a node omits its own.
type LLMConfig struct {
	Model string
}

// Classifier implements dag.NodeImpl for classifier nodes: it chooses
// an outgoing edge label given the input and context (spec §4.4).
type Classifier struct {
	NodeID             string
	OutputLabels       []string
	Description        string
	LLMConfig          *LLMConfig
	ClassificationFunc ClassificationFunc
	CustomPrompt       string
	ContextRead        []string
	FallbackLabel      string // defaults to "clarification"
}

// Execute implements dag.NodeImpl.
func (c *Classifier) Execute(ctx context.Context, input string, rc *dag.Context) (dag.ExecutionResult, error) {
	fallback := c.FallbackLabel
	if fallback == "" {
		fallback = "clarification"
	}

	var label string
	if c.ClassificationFunc != nil {
		chosen, err := c.ClassificationFunc(ctx, input, rc)
		if err != nil {
			return dag.ExecutionResult{}, &dag.ClassificationError{NodeID: c.NodeID, Reason: err.Error()}
		}
		label = chosen
	} else {
		llmAny, ok := rc.Get("llm_service")
		if !ok {
			return classificationErrorResult(c.NodeID, "no llm_service in context"), nil
		}
		llm, ok := llmAny.(model.LLMClient)
		if !ok {
			return classificationErrorResult(c.NodeID, "llm_service does not implement model.LLMClient"), nil
		}
		if c.LLMConfig == nil {
			return classificationErrorResult(c.NodeID, "no llm_config resolved"), nil
		}

		prompt := c.buildPrompt(input, rc)
		resp, err := llm.Generate(ctx, prompt, c.LLMConfig.Model)
		if err != nil {
			return dag.ExecutionResult{}, &dag.ClassificationError{NodeID: c.NodeID, Reason: fmt.Sprintf("llm call failed: %v", err)}
		}
		label = matchLabel(resp.Content, c.OutputLabels)
	}

	if label == "" {
		return dag.ExecutionResult{
			NextEdges:    []string{fallback},
			ContextPatch: map[string]any{"chosen_label": nil},
		}, nil
	}

	return dag.ExecutionResult{
		Data:         label,
		NextEdges:    []string{label},
		ContextPatch: map[string]any{"chosen_label": label},
	}, nil
}

// classificationErrorResult builds the terminal ExecutionResult spec.md
// §4.4 step 2 requires when no llm_service/llm_config is available: a
// classifier with no outgoing "error" edge must terminate cleanly rather
// than raise a fatal TraversalError.
func classificationErrorResult(nodeID, reason string) dag.ExecutionResult {
	err := &dag.ClassificationError{NodeID: nodeID, Reason: reason}
	return dag.ExecutionResult{
		Terminate: true,
		ContextPatch: map[string]any{
			"error":      err.Error(),
			"error_type": "ClassificationError",
		},
	}
}

func (c *Classifier) buildPrompt(input string, rc *dag.Context) string {
	if c.CustomPrompt != "" {
		return strings.ReplaceAll(c.CustomPrompt, "{user_input}", input)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Classify the following input into exactly one of these labels:\n")
	for _, label := range c.OutputLabels {
		fmt.Fprintf(&b, "- %s\n", label)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", c.Description)
	}
	for _, key := range c.ContextRead {
		if v, ok := rc.Get(key); ok {
			fmt.Fprintf(&b, "%s: %v\n", key, v)
		}
	}
	fmt.Fprintf(&b, "\nInput: %s\n\nRespond with only the label.", input)
	return b.String()
}

// matchLabel applies the classifier's three-tier match: exact
// case-insensitive, substring either direction, then fuzzy distance
// against a similarity threshold. Returns "" when nothing matches.
func matchLabel(reply string, labels []string) string {
	trimmed := strings.TrimSpace(reply)
	lower := strings.ToLower(trimmed)

	for _, label := range labels {
		if strings.ToLower(label) == lower {
			return label
		}
	}
	for _, label := range labels {
		labelLower := strings.ToLower(label)
		if strings.Contains(lower, labelLower) || strings.Contains(labelLower, lower) {
			return label
		}
	}

	best := ""
	bestDist := 1.0
	for _, label := range labels {
		dist := normalizedDistance(lower, strings.ToLower(label))
		if dist < bestDist {
			bestDist = dist
			best = label
		}
	}
	if bestDist <= fuzzyDistanceThreshold {
		return best
	}
	return ""
}

func normalizedDistance(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist) / float64(maxLen)
}
