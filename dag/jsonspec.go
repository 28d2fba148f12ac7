package dag

import (
	"encoding/json"
	"fmt"
)

// jsonGraph mirrors the Graph JSON format (spec §6):
//
//	{
//	  "nodes": {"<id>": {"type": "classifier|extractor|action|clarification", ...}},
//	  "edges": [{"from": "<id>", "to": "<id>", "label": "<string>?"}],
//	  "entrypoints": ["<id>"],
//	  "metadata": {"default_llm_config": {...}?}
//	}
type jsonGraph struct {
	Nodes       map[string]map[string]any `json:"nodes"`
	Edges       []jsonEdge                `json:"edges"`
	Entrypoints []string                  `json:"entrypoints"`
	Metadata    map[string]any            `json:"metadata"`
}

type jsonEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// FromJSON parses the Graph JSON format into a Builder, pre-loaded with
// every node, edge, entrypoint, and metadata entry from data. Call
// Build on the result to validate and freeze it.
//
// Rejection rules: the top-level value must be a JSON object; "nodes",
// "edges", and "entrypoints" must be present; each node's config must be
// an object carrying a "type"; each edge must carry "from" and "to".
func FromJSON(data []byte) (*Builder, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("dag: graph JSON must be an object: %w", err)
	}

	nodesRaw, ok := raw["nodes"]
	if !ok {
		return nil, fmt.Errorf("dag: graph JSON missing \"nodes\"")
	}
	edgesRaw, ok := raw["edges"]
	if !ok {
		return nil, fmt.Errorf("dag: graph JSON missing \"edges\"")
	}
	entrypointsRaw, ok := raw["entrypoints"]
	if !ok {
		return nil, fmt.Errorf("dag: graph JSON missing \"entrypoints\"")
	}

	var nodes map[string]map[string]any
	if err := json.Unmarshal(nodesRaw, &nodes); err != nil {
		return nil, fmt.Errorf("dag: \"nodes\" must be a map of node id to config object: %w", err)
	}

	var edges []jsonEdge
	if err := json.Unmarshal(edgesRaw, &edges); err != nil {
		return nil, fmt.Errorf("dag: \"edges\" must be a list of {from, to, label}: %w", err)
	}

	var entrypoints []string
	if err := json.Unmarshal(entrypointsRaw, &entrypoints); err != nil {
		return nil, fmt.Errorf("dag: \"entrypoints\" must be a list of node ids: %w", err)
	}

	var metadata map[string]any
	if metaRaw, ok := raw["metadata"]; ok {
		if err := json.Unmarshal(metaRaw, &metadata); err != nil {
			return nil, fmt.Errorf("dag: \"metadata\" must be an object: %w", err)
		}
	}

	b := NewBuilder()
	for id, cfg := range nodes {
		rawType, ok := cfg["type"]
		if !ok {
			return nil, fmt.Errorf("dag: node %q config missing \"type\"", id)
		}
		typeStr, ok := rawType.(string)
		if !ok {
			return nil, fmt.Errorf("dag: node %q \"type\" must be a string", id)
		}
		b.AddNode(GraphNode{ID: id, Type: NodeKind(typeStr), Config: cfg})
	}
	for _, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("dag: every edge must have \"from\" and \"to\"")
		}
		b.AddEdge(e.From, e.To, e.Label)
	}
	b.SetEntrypoints(entrypoints...)
	for k, v := range metadata {
		b.WithMetadata(k, v)
	}

	if b.err != nil {
		return nil, b.err
	}
	if err := b.validateReferences(); err != nil {
		return nil, err
	}
	return b, nil
}

// ToJSON serializes g into the Graph JSON format.
func ToJSON(g *IntentDAG) ([]byte, error) {
	jg := jsonGraph{
		Nodes:       make(map[string]map[string]any, len(g.nodes)),
		Entrypoints: g.Entrypoints(),
		Metadata:    g.Metadata(),
	}
	for id, n := range g.nodes {
		cfg := make(map[string]any, len(n.Config)+1)
		for k, v := range n.Config {
			cfg[k] = v
		}
		cfg["type"] = string(n.Type)
		jg.Nodes[id] = cfg
	}
	for key, dsts := range g.adj {
		for _, to := range dsts {
			jg.Edges = append(jg.Edges, jsonEdge{From: key.from, To: to, Label: key.label})
		}
	}
	return json.Marshal(jg)
}
