package dag

import "fmt"

// color marks three-color DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// ValidationResult collects both hard errors (graph rejected) and
// warnings (graph accepted but suspect) from Validate.
type ValidationResult struct {
	Errors   []error
	Warnings []string
}

// OK reports whether the graph had no hard errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the full static validation pass over g: id integrity,
// non-empty entrypoints, and acyclicity are hard errors; unreachable
// nodes and classifier/extractor edges with no matching outgoing label
// are warnings only (spec.md §4.2).
func Validate(g *IntentDAG) ValidationResult {
	var result ValidationResult

	if len(g.entrypoints) == 0 {
		result.Errors = append(result.Errors, ErrNoEntrypoints)
	}
	for _, ep := range g.entrypoints {
		if _, ok := g.nodes[ep]; !ok {
			result.Errors = append(result.Errors, fmt.Errorf("dag: entrypoint references unknown node %q", ep))
		}
	}

	for key, dsts := range g.adj {
		if _, ok := g.nodes[key.from]; !ok {
			result.Errors = append(result.Errors, fmt.Errorf("dag: edge references unknown source node %q", key.from))
		}
		for _, to := range dsts {
			if _, ok := g.nodes[to]; !ok {
				result.Errors = append(result.Errors, fmt.Errorf("dag: edge references unknown destination node %q", to))
			}
		}
	}

	for id, n := range g.nodes {
		if !validNodeKind(n.Type) {
			result.Errors = append(result.Errors, fmt.Errorf("dag: node %q has unknown type %q", id, n.Type))
		}
	}

	if len(result.Errors) > 0 {
		// Edge/node integrity failures make the remaining passes
		// meaningless (they'd panic or report nonsense).
		return result
	}

	if cycle := findCycle(g); cycle != nil {
		result.Errors = append(result.Errors, &CycleError{Cycle: cycle})
		return result
	}

	result.Warnings = append(result.Warnings, unreachableWarnings(g)...)
	result.Warnings = append(result.Warnings, labelCoverageWarnings(g)...)

	return result
}

// findCycle runs a three-color DFS from every node (so it also catches
// cycles not reachable from an entrypoint) and returns the offending
// cycle as an ordered id path, or nil if the graph is acyclic.
func findCycle(g *IntentDAG) []string {
	colors := make(map[string]color, len(g.nodes))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = gray
		path = append(path, id)

		for key, dsts := range g.adj {
			if key.from != id {
				continue
			}
			for _, next := range dsts {
				switch colors[next] {
				case white:
					if cyc := visit(next); cyc != nil {
						return cyc
					}
				case gray:
					// Back-edge found: recover the cycle from path.
					start := 0
					for i, p := range path {
						if p == next {
							start = i
							break
						}
					}
					cyc := append([]string{}, path[start:]...)
					cyc = append(cyc, next)
					return cyc
				case black:
					// Forward/cross edge, not a cycle.
				}
			}
		}

		colors[id] = black
		path = path[:len(path)-1]
		return nil
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if colors[id] == white {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// unreachableWarnings BFS-walks from every entrypoint and reports any
// node never visited.
func unreachableWarnings(g *IntentDAG) []string {
	visited := make(map[string]bool, len(g.nodes))
	queue := append([]string{}, g.entrypoints...)
	for _, ep := range g.entrypoints {
		visited[ep] = true
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for key, dsts := range g.adj {
			if key.from != id {
				continue
			}
			for _, next := range dsts {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	var warnings []string
	for id := range g.nodes {
		if !visited[id] {
			warnings = append(warnings, fmt.Sprintf("node %q is unreachable from any entrypoint", id))
		}
	}
	return warnings
}

// labelCoverageWarnings flags classifier/extractor nodes whose
// declared producer_labels (if present in Config) have no matching
// outgoing edge — a likely authoring mistake, not a structural defect.
func labelCoverageWarnings(g *IntentDAG) []string {
	var warnings []string
	for id, n := range g.nodes {
		if n.Type != KindClassifier && n.Type != KindExtractor {
			continue
		}
		raw, ok := n.Config["producer_labels"]
		if !ok {
			continue
		}
		declared, ok := raw.([]string)
		if !ok {
			continue
		}
		have := make(map[string]bool)
		for _, l := range g.OutgoingLabels(id) {
			have[l] = true
		}
		for _, label := range declared {
			if !have[label] {
				warnings = append(warnings, fmt.Sprintf("node %q declares label %q with no matching outgoing edge", id, label))
			}
		}
	}
	return warnings
}
