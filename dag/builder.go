package dag

import "fmt"

// Builder assembles an IntentDAG incrementally. It is not safe for
// concurrent use. Build() freezes the Builder: every mutation method
// called afterward is rejected with ErrFrozenGraph instead of silently
// applying (spec.md §4.1).
type Builder struct {
	nodes       map[string]GraphNode
	edges       []edge
	entrypoints []string
	metadata    map[string]any
	frozen      bool
	err         error
}

type edge struct {
	from, to, label string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:    make(map[string]GraphNode),
		metadata: make(map[string]any),
	}
}

// validNodeKind reports whether k is one of the closed set of node types
// (spec.md §3): classifier, extractor, action, clarification.
func validNodeKind(k NodeKind) bool {
	switch k {
	case KindClassifier, KindExtractor, KindAction, KindClarification:
		return true
	default:
		return false
	}
}

// rejected reports whether the Builder can no longer accept mutations,
// recording ErrFrozenGraph the first time it observes a post-freeze call.
// Every mutation method checks this before doing any work.
func (b *Builder) rejected() bool {
	if b.err != nil {
		return true
	}
	if b.frozen {
		b.err = ErrFrozenGraph
		return true
	}
	return false
}

// AddNode registers a node. Rejects a duplicate id or a Type outside the
// closed node-kind set by recording the error for Build to return; the
// call itself is a no-op once rejected.
func (b *Builder) AddNode(n GraphNode) *Builder {
	if b.rejected() {
		return b
	}
	if _, exists := b.nodes[n.ID]; exists {
		b.err = fmt.Errorf("dag: duplicate node id %q", n.ID)
		return b
	}
	if !validNodeKind(n.Type) {
		b.err = fmt.Errorf("dag: node %q has unknown type %q", n.ID, n.Type)
		return b
	}
	b.nodes[n.ID] = n
	return b
}

// AddEdge adds a directed, labeled edge. label == UnlabeledEdge marks a
// fall-through edge, only followed when the source node's ExecutionResult
// leaves NextEdges empty.
func (b *Builder) AddEdge(from, to, label string) *Builder {
	if b.rejected() {
		return b
	}
	b.edges = append(b.edges, edge{from: from, to: to, label: label})
	return b
}

// SetEntrypoints replaces the set of nodes traversal may start from.
func (b *Builder) SetEntrypoints(ids ...string) *Builder {
	if b.rejected() {
		return b
	}
	b.entrypoints = append([]string{}, ids...)
	return b
}

// WithMetadata attaches an opaque metadata value (title, version, owner)
// to the built graph.
func (b *Builder) WithMetadata(key string, value any) *Builder {
	if b.rejected() {
		return b
	}
	b.metadata[key] = value
	return b
}

// RemoveNode drops a node, every edge that touches it, and its
// entrypoint membership (spec.md §4.1).
func (b *Builder) RemoveNode(id string) *Builder {
	if b.rejected() {
		return b
	}
	delete(b.nodes, id)
	kept := b.edges[:0]
	for _, e := range b.edges {
		if e.from != id && e.to != id {
			kept = append(kept, e)
		}
	}
	b.edges = kept

	eps := b.entrypoints[:0]
	for _, ep := range b.entrypoints {
		if ep != id {
			eps = append(eps, ep)
		}
	}
	b.entrypoints = eps
	return b
}

// Build freezes the Builder — every subsequent mutation method call is
// rejected — then validates the accumulated graph and returns an
// immutable IntentDAG. Pass skipValidation=true only for tests that
// intentionally construct malformed graphs; freezing still applies.
func (b *Builder) Build(skipValidation ...bool) (*IntentDAG, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.frozen = true

	adj := make(map[edgeKey][]string, len(b.edges))
	rev := make(map[string][]string, len(b.nodes))
	for _, e := range b.edges {
		key := edgeKey{from: e.from, label: e.label}
		adj[key] = append(adj[key], e.to)
		rev[e.to] = append(rev[e.to], e.from)
	}

	nodes := make(map[string]GraphNode, len(b.nodes))
	for id, n := range b.nodes {
		nodes[id] = n
	}

	g := &IntentDAG{
		nodes:       nodes,
		adj:         adj,
		rev:         rev,
		entrypoints: append([]string{}, b.entrypoints...),
		metadata:    b.metadata,
	}

	skip := len(skipValidation) > 0 && skipValidation[0]
	if !skip {
		result := Validate(g)
		if len(result.Errors) > 0 {
			return nil, result.Errors[0]
		}
	}
	return g, nil
}

func (b *Builder) hasNode(id string) bool {
	_, ok := b.nodes[id]
	return ok
}

// validateReferences is a lightweight pre-check used by callers that want
// a plain error rather than a full ValidationResult (FromJSON uses this).
func (b *Builder) validateReferences() error {
	for _, e := range b.edges {
		if !b.hasNode(e.from) {
			return fmt.Errorf("dag: edge references unknown source node %q", e.from)
		}
		if !b.hasNode(e.to) {
			return fmt.Errorf("dag: edge references unknown destination node %q", e.to)
		}
	}
	for _, ep := range b.entrypoints {
		if !b.hasNode(ep) {
			return fmt.Errorf("dag: entrypoint references unknown node %q", ep)
		}
	}
	return nil
}
