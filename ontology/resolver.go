package ontology

import (
	"context"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/event"
	"github.com/c360/docstreams/pointer"
)

// Fragment is a custom ontology referenced from event metadata through
// a pointer. Head nodes are linked to the document node when the
// fragment is merged.
type Fragment struct {
	Nodes []FragmentNode `json:"nodes"`
	Edges []Edge         `json:"edges,omitempty"`
}

// FragmentNode is a graph node with a head marker.
type FragmentNode struct {
	Node
	IsHead bool `json:"isHead,omitempty"`
}

// Resolver derives property graphs from document events.
type Resolver struct {
	sources *pointer.SourceRegistry
}

// NewResolver creates a resolver. The source registry is only needed
// when events carry custom ontology pointers; it may be nil otherwise.
func NewResolver(sources *pointer.SourceRegistry) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve deterministically builds the property graph for one event.
func (r *Resolver) Resolve(ctx context.Context, evt *event.CloudEvent) (*DirectedGraph, error) {
	if evt == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidEvent, "Resolver", "Resolve", "event required")
	}

	graph := NewDirectedGraph()
	doc := evt.Data.Document
	docID := doc.ID()

	if err := graph.MergeNode(Node{
		ID:   docID,
		Type: NodeDocument,
		Attrs: map[string]any{
			"url":  doc.URL,
			"type": doc.Type,
			"size": doc.Size,
			"etag": doc.Etag,
		},
	}); err != nil {
		return nil, err
	}

	if source := evt.Data.Source; !source.Equal(doc) {
		if err := graph.MergeNode(Node{
			ID:   source.ID(),
			Type: NodeDocument,
			Attrs: map[string]any{
				"url":  source.URL,
				"type": source.Type,
				"size": source.Size,
				"etag": source.Etag,
			},
		}); err != nil {
			return nil, err
		}
		if err := graph.MergeEdge(Edge{From: docID, To: source.ID(), Type: HasSource}); err != nil {
			return nil, err
		}
	}

	meta := evt.Data.Metadata
	if err := r.addMetadataNodes(graph, docID, meta); err != nil {
		return nil, err
	}

	if meta.Ontology != nil {
		if err := r.mergeCustomOntology(ctx, graph, docID, *meta.Ontology); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

func (r *Resolver) addMetadataNodes(graph *DirectedGraph, docID string, meta event.Metadata) error {
	link := func(id string, nodeType NodeType, edgeType EdgeType, attrs map[string]any) error {
		if err := graph.MergeNode(Node{ID: id, Type: nodeType, Attrs: attrs}); err != nil {
			return err
		}
		return graph.MergeEdge(Edge{From: docID, To: id, Type: edgeType})
	}

	if meta.Language != "" {
		if err := link("language/"+meta.Language, NodeLanguage, HasLanguage,
			map[string]any{"code": meta.Language}); err != nil {
			return err
		}
	}
	for _, topic := range meta.Topics {
		if err := link("topic/"+topic, NodeTopic, HasTopic, map[string]any{"name": topic}); err != nil {
			return err
		}
	}
	if meta.Publisher != "" {
		if err := link("publisher/"+meta.Publisher, NodePublisher, PublishedBy,
			map[string]any{"name": meta.Publisher}); err != nil {
			return err
		}
	}
	for _, author := range meta.Authors {
		if err := link("author/"+author, NodeAuthor, AuthoredBy, map[string]any{"name": author}); err != nil {
			return err
		}
	}
	for _, class := range meta.Classes {
		if err := link("class/"+class, NodeClass, HasClass, map[string]any{"name": class}); err != nil {
			return err
		}
	}
	if meta.Properties != nil && meta.Properties.Kind != "" {
		kind := string(meta.Properties.Kind)
		if err := link("kind/"+kind, NodeKind, HasKind, map[string]any{"name": kind}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) mergeCustomOntology(
	ctx context.Context, graph *DirectedGraph, docID string, handle pointer.Handle,
) error {
	if r.sources == nil {
		return errors.WrapInvalid(errors.ErrResolutionFailed, "Resolver", "mergeCustomOntology",
			"no data sources configured for ontology pointer")
	}

	fragment, err := pointer.Bind[Fragment](handle, r.sources).Resolve(ctx)
	if err != nil {
		return errors.Wrap(err, "Resolver", "mergeCustomOntology", "resolve "+handle.URI)
	}

	for _, n := range fragment.Nodes {
		if err := graph.MergeNode(n.Node); err != nil {
			return err
		}
		if n.IsHead {
			if err := graph.MergeEdge(Edge{From: docID, To: n.ID, Type: HasOntology}); err != nil {
				return err
			}
		}
	}
	for _, e := range fragment.Edges {
		if err := graph.MergeEdge(e); err != nil {
			return err
		}
	}
	return nil
}
