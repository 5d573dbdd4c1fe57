package ontology

import (
	"fmt"

	"github.com/c360/docstreams/errors"
)

// NodeType categorizes a graph node.
type NodeType string

// Built-in node types. Custom fragments may introduce their own.
const (
	NodeDocument  NodeType = "document"
	NodeLanguage  NodeType = "language"
	NodeTopic     NodeType = "topic"
	NodePublisher NodeType = "publisher"
	NodeAuthor    NodeType = "author"
	NodeClass     NodeType = "class"
	NodeKind      NodeType = "kind"
)

// EdgeType names the relation an edge carries.
type EdgeType string

// Built-in edge types.
const (
	HasSource   EdgeType = "HAS_SOURCE"
	HasLanguage EdgeType = "HAS_LANGUAGE"
	HasTopic    EdgeType = "HAS_TOPIC"
	PublishedBy EdgeType = "PUBLISHED_BY"
	AuthoredBy  EdgeType = "AUTHORED_BY"
	HasClass    EdgeType = "HAS_CLASS"
	HasKind     EdgeType = "HAS_KIND"
	HasOntology EdgeType = "HAS_ONTOLOGY"
)

// Node is a vertex in the property graph.
type Node struct {
	ID    string         `json:"id"`
	Type  NodeType       `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Edge is a typed, attributed relation between two nodes.
type Edge struct {
	From  string         `json:"from"`
	To    string         `json:"to"`
	Type  EdgeType       `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type edgeKey struct {
	from, to string
	typ      EdgeType
}

// DirectedGraph is a property graph keyed by node identifier. Node and
// edge insertion order is preserved for deterministic serialization.
type DirectedGraph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[edgeKey]*Edge
	edgeOrder []edgeKey
}

// NewDirectedGraph creates an empty graph.
func NewDirectedGraph() *DirectedGraph {
	return &DirectedGraph{
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]*Edge),
	}
}

// MergeNode adds a node, or unions its attributes into the existing
// node with the same identifier. Keys already present keep their
// values; merging never overwrites wholesale. Two nodes claiming one
// identifier with different types is a construction error.
func (g *DirectedGraph) MergeNode(n Node) error {
	if n.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "DirectedGraph", "MergeNode", "node id required")
	}

	existing, ok := g.nodes[n.ID]
	if !ok {
		stored := Node{ID: n.ID, Type: n.Type, Attrs: copyAttrs(n.Attrs)}
		g.nodes[n.ID] = &stored
		g.nodeOrder = append(g.nodeOrder, n.ID)
		return nil
	}

	if n.Type != "" && existing.Type != "" && n.Type != existing.Type {
		return errors.WrapInvalid(
			fmt.Errorf("node %q is %s, not %s", n.ID, existing.Type, n.Type),
			"DirectedGraph", "MergeNode", "type conflict")
	}
	if existing.Type == "" {
		existing.Type = n.Type
	}
	existing.Attrs = unionAttrs(existing.Attrs, n.Attrs)
	return nil
}

// MergeEdge adds an edge, or unions its attributes into the existing
// edge with the same (from, to, type) triple. Both endpoints must
// already be in the graph.
func (g *DirectedGraph) MergeEdge(e Edge) error {
	if e.From == "" || e.To == "" || e.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "DirectedGraph", "MergeEdge",
			"edge requires from, to and type")
	}
	if _, ok := g.nodes[e.From]; !ok {
		return errors.WrapInvalid(
			fmt.Errorf("unknown node %q", e.From),
			"DirectedGraph", "MergeEdge", "resolve from endpoint")
	}
	if _, ok := g.nodes[e.To]; !ok {
		return errors.WrapInvalid(
			fmt.Errorf("unknown node %q", e.To),
			"DirectedGraph", "MergeEdge", "resolve to endpoint")
	}

	key := edgeKey{from: e.From, to: e.To, typ: e.Type}
	existing, ok := g.edges[key]
	if !ok {
		stored := Edge{From: e.From, To: e.To, Type: e.Type, Attrs: copyAttrs(e.Attrs)}
		g.edges[key] = &stored
		g.edgeOrder = append(g.edgeOrder, key)
		return nil
	}
	existing.Attrs = unionAttrs(existing.Attrs, e.Attrs)
	return nil
}

// Node returns the node with the given identifier and whether it
// exists.
func (g *DirectedGraph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return Node{ID: n.ID, Type: n.Type, Attrs: copyAttrs(n.Attrs)}, true
}

// Nodes returns all nodes in insertion order.
func (g *DirectedGraph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		out = append(out, Node{ID: n.ID, Type: n.Type, Attrs: copyAttrs(n.Attrs)})
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *DirectedGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		e := g.edges[key]
		out = append(out, Edge{From: e.From, To: e.To, Type: e.Type, Attrs: copyAttrs(e.Attrs)})
	}
	return out
}

// EdgesFrom returns the edges leaving the given node, in insertion
// order.
func (g *DirectedGraph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, key := range g.edgeOrder {
		if key.from == id {
			e := g.edges[key]
			out = append(out, Edge{From: e.From, To: e.To, Type: e.Type, Attrs: copyAttrs(e.Attrs)})
		}
	}
	return out
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func unionAttrs(existing, incoming map[string]any) map[string]any {
	if len(incoming) == 0 {
		return existing
	}
	if existing == nil {
		return copyAttrs(incoming)
	}
	for k, v := range incoming {
		if _, ok := existing[k]; !ok {
			existing[k] = v
		}
	}
	return existing
}
