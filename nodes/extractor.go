package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"

	"github.com/dshills/intentrouter-go/dag"
	"github.com/dshills/intentrouter-go/dag/model"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Extractor implements dag.NodeImpl for extractor nodes: it fills a
// typed parameter schema from the input via an LLM call (spec §4.5).
type Extractor struct {
	NodeID       string
	ParamSchema  ParamSchema
	OutputKey    string // defaults to "extracted_params"
	LLMConfig    *LLMConfig
	CustomPrompt string
}

// Execute implements dag.NodeImpl.
func (e *Extractor) Execute(ctx context.Context, input string, rc *dag.Context) (dag.ExecutionResult, error) {
	outputKey := e.OutputKey
	if outputKey == "" {
		outputKey = "extracted_params"
	}

	llmAny, ok := rc.Get("llm_service")
	if !ok {
		return dag.ExecutionResult{}, &dag.ExtractionError{NodeID: e.NodeID, Reason: "no llm_service in context"}
	}
	llm, ok := llmAny.(model.LLMClient)
	if !ok {
		return dag.ExecutionResult{}, &dag.ExtractionError{NodeID: e.NodeID, Reason: "llm_service does not implement model.LLMClient"}
	}
	if e.LLMConfig == nil {
		return dag.ExecutionResult{}, &dag.ExtractionError{NodeID: e.NodeID, Reason: "no llm_config resolved"}
	}

	prompt := e.buildPrompt(input)
	resp, err := llm.Generate(ctx, prompt, e.LLMConfig.Model)
	if err != nil {
		return dag.ExecutionResult{}, &dag.ExtractionError{NodeID: e.NodeID, Reason: fmt.Sprintf("llm call failed: %v", err)}
	}

	raw, err := e.parseReply(resp.Content)
	if err != nil {
		return dag.ExecutionResult{}, &dag.ExtractionError{NodeID: e.NodeID, Reason: "could not parse reply", Cause: err}
	}

	coerced, err := CoerceParams(e.ParamSchema, raw)
	if err != nil {
		var field string
		if tce, ok := err.(*dag.TypeCoercionError); ok {
			field = tce.Field
		}
		return dag.ExecutionResult{}, &dag.ExtractionError{NodeID: e.NodeID, Field: field, Reason: "coercion failed", Cause: err}
	}

	return dag.ExecutionResult{
		NextEdges:    []string{"success"},
		ContextPatch: map[string]any{outputKey: coerced},
	}, nil
}

func (e *Extractor) buildPrompt(input string) string {
	if e.CustomPrompt != "" {
		return strings.ReplaceAll(e.CustomPrompt, "{user_input}", input)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extract the following fields as JSON:\n")
	for name, field := range e.ParamSchema {
		fmt.Fprintf(&b, "- %s: %s\n", name, field.Type)
	}
	fmt.Fprintf(&b, "\nInput: %s\n\nRespond with only the JSON object.", input)
	return b.String()
}

// parseReply accepts bare JSON, a ```json fenced block, YAML as a
// fallback, or — when the schema has exactly one string field — the
// raw reply assigned directly to that field.
func (e *Extractor) parseReply(reply string) (map[string]any, error) {
	trimmed := strings.TrimSpace(reply)

	if out, ok := tryUnmarshalObject(trimmed); ok {
		return out, nil
	}

	candidate := trimmed
	if match := fencedJSONPattern.FindStringSubmatch(trimmed); match != nil {
		if out, ok := tryUnmarshalObject(match[1]); ok {
			return out, nil
		}
		candidate = match[1]
	}

	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if out, ok := tryUnmarshalObject(repaired); ok {
			return out, nil
		}
	}

	var yamlOut map[string]any
	if err := yaml.Unmarshal([]byte(trimmed), &yamlOut); err == nil && len(yamlOut) > 0 {
		return yamlOut, nil
	}

	if singleStringField, ok := e.onlyStringField(); ok {
		return map[string]any{singleStringField: trimmed}, nil
	}

	return nil, fmt.Errorf("reply is neither valid JSON, fenced JSON, nor YAML")
}

func tryUnmarshalObject(s string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (e *Extractor) onlyStringField() (string, bool) {
	if len(e.ParamSchema) != 1 {
		return "", false
	}
	for name, field := range e.ParamSchema {
		if field.Type == TypeString {
			return name, true
		}
	}
	return "", false
}
