package routerconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/intentrouter-go/dag"
)

// LoadGraph reads a graph document from path, in either the Graph JSON
// format (spec §6) or an equivalent YAML encoding, and returns a
// validated, frozen IntentDAG. The format is chosen by extension:
// ".yaml"/".yml" parse as YAML, everything else as JSON.
func LoadGraph(path string) (*dag.IntentDAG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routerconfig: read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("routerconfig: convert %s to JSON: %w", path, err)
		}
	}

	builder, err := dag.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("routerconfig: parse graph %s: %w", path, err)
	}
	g, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("routerconfig: validate graph %s: %w", path, err)
	}
	return g, nil
}

// yamlToJSON round-trips YAML through a generic map so dag.FromJSON's
// JSON decoder can consume it directly.
func yamlToJSON(data []byte) ([]byte, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
