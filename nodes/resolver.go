package nodes

import (
	"fmt"

	"github.com/dshills/intentrouter-go/dag"
)

// ActionRegistry resolves the "action" field of an action node's config
// (an opaque string naming a host-registered callable) to an
// ActionFunc, since dag.GraphNode.Config is decoded from JSON and
// cannot itself carry a Go function value.
type ActionRegistry map[string]ActionFunc

// Resolver builds a dag.Resolver backed by reg for action nodes and
// the given default LLM config for classifier/extractor nodes that
// don't declare their own.
type Resolver struct {
	Actions     ActionRegistry
	DefaultLLM  *LLMConfig
	GraphLLM    *LLMConfig
	Classifiers map[string]ClassificationFunc
}

// NewResolver returns a Resolver with an empty action registry.
func NewResolver(defaultLLM *LLMConfig) *Resolver {
	return &Resolver{Actions: make(ActionRegistry), DefaultLLM: defaultLLM, Classifiers: make(map[string]ClassificationFunc)}
}

// LoadGraphDefaults reads g's well-known "default_llm_config" metadata
// entry (spec.md §3), if present, so classifier/extractor nodes that
// declare no llm_config of their own inherit it. Call once after
// building the graph and before resolving any node.
func (r *Resolver) LoadGraphDefaults(g *dag.IntentDAG) {
	r.GraphLLM = decodeLLMConfig(g.Metadata()["default_llm_config"])
}

// RegisterAction makes fn available to action nodes whose config names
// it under the given key.
func (r *Resolver) RegisterAction(name string, fn ActionFunc) {
	r.Actions[name] = fn
}

// RegisterClassificationFunc makes fn available to classifier nodes
// whose config names it under the given key.
func (r *Resolver) RegisterClassificationFunc(name string, fn ClassificationFunc) {
	r.Classifiers[name] = fn
}

// Resolve implements dag.Resolver, dispatching on node.Type.
func (r *Resolver) Resolve(node dag.GraphNode) (dag.NodeImpl, error) {
	switch node.Type {
	case dag.KindClassifier:
		return r.buildClassifier(node)
	case dag.KindExtractor:
		return r.buildExtractor(node)
	case dag.KindAction:
		return r.buildAction(node)
	case dag.KindClarification:
		return r.buildClarification(node)
	default:
		return nil, fmt.Errorf("nodes: unknown node type %q for node %q", node.Type, node.ID)
	}
}

func (r *Resolver) buildClassifier(node dag.GraphNode) (dag.NodeImpl, error) {
	c := &Classifier{NodeID: node.ID, LLMConfig: r.DefaultLLM}
	if r.GraphLLM != nil {
		c.LLMConfig = r.GraphLLM
	}

	if labels, ok := node.Config["output_labels"].([]any); ok {
		for _, l := range labels {
			if s, ok := l.(string); ok {
				c.OutputLabels = append(c.OutputLabels, s)
			}
		}
	}
	if desc, ok := node.Config["description"].(string); ok {
		c.Description = desc
	}
	if prompt, ok := node.Config["custom_prompt"].(string); ok {
		c.CustomPrompt = prompt
	}
	if fallback, ok := node.Config["fallback_label"].(string); ok {
		c.FallbackLabel = fallback
	}
	if reads, ok := node.Config["context_read"].([]any); ok {
		for _, v := range reads {
			if s, ok := v.(string); ok {
				c.ContextRead = append(c.ContextRead, s)
			}
		}
	}
	if fnName, ok := node.Config["classification_func"].(string); ok {
		fn, ok := r.Classifiers[fnName]
		if !ok {
			return nil, fmt.Errorf("nodes: classifier %q references unregistered classification_func %q", node.ID, fnName)
		}
		c.ClassificationFunc = fn
	}
	if llmCfg := decodeLLMConfig(node.Config["llm_config"]); llmCfg != nil {
		c.LLMConfig = llmCfg
	}

	return c, nil
}

func (r *Resolver) buildExtractor(node dag.GraphNode) (dag.NodeImpl, error) {
	e := &Extractor{NodeID: node.ID, LLMConfig: r.DefaultLLM}
	if r.GraphLLM != nil {
		e.LLMConfig = r.GraphLLM
	}

	if outputKey, ok := node.Config["output_key"].(string); ok {
		e.OutputKey = outputKey
	}
	if prompt, ok := node.Config["custom_prompt"].(string); ok {
		e.CustomPrompt = prompt
	}
	if schema, ok := node.Config["param_schema"].(map[string]any); ok {
		decoded, err := decodeParamSchema(schema)
		if err != nil {
			return nil, fmt.Errorf("nodes: extractor %q: %w", node.ID, err)
		}
		e.ParamSchema = decoded
	}
	if llmCfg := decodeLLMConfig(node.Config["llm_config"]); llmCfg != nil {
		e.LLMConfig = llmCfg
	}

	return e, nil
}

func (r *Resolver) buildAction(node dag.GraphNode) (dag.NodeImpl, error) {
	actionName, ok := node.Config["action"].(string)
	if !ok {
		return nil, fmt.Errorf("nodes: action node %q missing \"action\"", node.ID)
	}
	fn, ok := r.Actions[actionName]
	if !ok {
		return nil, fmt.Errorf("nodes: action node %q references unregistered action %q", node.ID, actionName)
	}

	a := NewAction(node.ID, fn)
	if paramKey, ok := node.Config["param_key"].(string); ok {
		a.ParamKey = paramKey
	}
	if keys, ok := node.Config["param_keys"].([]any); ok {
		for _, k := range keys {
			if s, ok := k.(string); ok {
				a.ParamKeys = append(a.ParamKeys, s)
			}
		}
	}
	if reads, ok := node.Config["context_read"].([]any); ok {
		for _, v := range reads {
			if s, ok := v.(string); ok {
				a.ContextRead = append(a.ContextRead, s)
			}
		}
	}
	if writes, ok := node.Config["context_write"].([]any); ok {
		for _, v := range writes {
			if s, ok := v.(string); ok {
				a.ContextWrite = append(a.ContextWrite, s)
			}
		}
	}
	if terminate, ok := node.Config["terminate_on_success"].(bool); ok {
		a.TerminateOnSuccess = terminate
	}

	return a, nil
}

func (r *Resolver) buildClarification(node dag.GraphNode) (dag.NodeImpl, error) {
	c := &Clarification{NodeID: node.ID}
	if msg, ok := node.Config["clarification_message"].(string); ok {
		c.ClarificationMsg = msg
	}
	if opts, ok := node.Config["available_options"].([]any); ok {
		for _, o := range opts {
			if s, ok := o.(string); ok {
				c.AvailableOptions = append(c.AvailableOptions, s)
			}
		}
	}
	return c, nil
}

func decodeLLMConfig(raw any) *LLMConfig {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	cfg := &LLMConfig{}
	if model, ok := m["model"].(string); ok {
		cfg.Model = model
	}
	return cfg
}

func decodeParamSchema(raw map[string]any) (ParamSchema, error) {
	schema := make(ParamSchema, len(raw))
	for name, v := range raw {
		field, err := decodeFieldSchema(name, v)
		if err != nil {
			return nil, err
		}
		schema[name] = field
	}
	return schema, nil
}

func decodeFieldSchema(name string, raw any) (FieldSchema, error) {
	switch v := raw.(type) {
	case string:
		return FieldSchema{Type: ParamType(v)}, nil
	case map[string]any:
		typeStr, ok := v["type"].(string)
		if !ok {
			return FieldSchema{}, fmt.Errorf("field %q missing \"type\"", name)
		}
		field := FieldSchema{Type: ParamType(typeStr)}
		if field.Type == TypeRecord {
			nestedRaw, ok := v["fields"].(map[string]any)
			if !ok {
				return FieldSchema{}, fmt.Errorf("record field %q missing \"fields\"", name)
			}
			nested, err := decodeParamSchema(nestedRaw)
			if err != nil {
				return FieldSchema{}, err
			}
			field.Fields = nested
		}
		return field, nil
	default:
		return FieldSchema{}, fmt.Errorf("field %q has unsupported schema value %v", name, raw)
	}
}
