package ontology

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/cachestore"
	"github.com/c360/docstreams/event"
	"github.com/c360/docstreams/pointer"
)

func resolverEvent(t *testing.T) *event.CloudEvent {
	t.Helper()
	evt, err := event.New(event.Document{
		URL:  "cache://inbox/report.txt",
		Type: "text/plain",
		Size: 1024,
		Etag: "e1",
	})
	require.NoError(t, err)
	return evt
}

func TestResolveDocumentOnly(t *testing.T) {
	evt := resolverEvent(t)

	graph, err := NewResolver(nil).Resolve(context.Background(), evt)
	require.NoError(t, err)

	nodes := graph.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, NodeDocument, nodes[0].Type)
	assert.Equal(t, evt.Data.Document.ID(), nodes[0].ID)
	assert.Equal(t, "cache://inbox/report.txt", nodes[0].Attrs["url"])
	assert.Empty(t, graph.Edges(), "source equals document, no HAS_SOURCE edge")
}

func TestResolveLinksDistinctSource(t *testing.T) {
	evt := resolverEvent(t)
	evt.Data.Document = event.Document{
		URL:  "cache://converted/report-text.txt",
		Type: "text/plain",
		Etag: "e2",
	}

	graph, err := NewResolver(nil).Resolve(context.Background(), evt)
	require.NoError(t, err)

	assert.Len(t, graph.Nodes(), 2)
	edges := graph.EdgesFrom(evt.Data.Document.ID())
	require.Len(t, edges, 1)
	assert.Equal(t, HasSource, edges[0].Type)
	assert.Equal(t, evt.Data.Source.ID(), edges[0].To)
}

func TestResolveMetadataNodes(t *testing.T) {
	evt := resolverEvent(t)
	evt.Data.Metadata = event.Metadata{
		Language:  "en",
		Topics:    []string{"finance", "energy"},
		Publisher: "acme-news",
		Authors:   []string{"alice", "bob"},
		Classes:   []string{"report"},
		Properties: &event.Properties{
			Kind: event.KindText,
			Text: &event.TextAttributes{Pages: 4},
		},
	}

	graph, err := NewResolver(nil).Resolve(context.Background(), evt)
	require.NoError(t, err)

	docID := evt.Data.Document.ID()
	expect := map[string]EdgeType{
		"language/en":         HasLanguage,
		"topic/finance":       HasTopic,
		"topic/energy":        HasTopic,
		"publisher/acme-news": PublishedBy,
		"author/alice":        AuthoredBy,
		"author/bob":          AuthoredBy,
		"class/report":        HasClass,
		"kind/text":           HasKind,
	}

	edges := graph.EdgesFrom(docID)
	require.Len(t, edges, len(expect))
	for _, e := range edges {
		want, ok := expect[e.To]
		require.True(t, ok, "unexpected edge target %s", e.To)
		assert.Equal(t, want, e.Type, e.To)
	}

	lang, ok := graph.Node("language/en")
	require.True(t, ok)
	assert.Equal(t, NodeLanguage, lang.Type)
	assert.Equal(t, "en", lang.Attrs["code"])
}

func TestResolveMergesCustomOntology(t *testing.T) {
	fragment := Fragment{
		Nodes: []FragmentNode{
			{Node: Node{ID: "org/acme", Type: "organization", Attrs: map[string]any{"name": "acme"}}, IsHead: true},
			{Node: Node{ID: "person/carol", Type: "person"}},
		},
		Edges: []Edge{
			{From: "org/acme", To: "person/carol", Type: "EMPLOYS"},
		},
	}
	raw, err := json.Marshal(fragment)
	require.NoError(t, err)

	blobs := cachestore.NewMemoryStore()
	require.NoError(t, blobs.Put(context.Background(), "svc/frag", raw))
	sources := pointer.NewSourceRegistry()
	require.NoError(t, sources.Register(cachestore.Scheme, cachestore.NewSource(blobs)))

	evt := resolverEvent(t)
	evt.Data.Metadata.Ontology = &pointer.Handle{URI: "cache://svc/frag", Type: "ontology"}

	graph, err := NewResolver(sources).Resolve(context.Background(), evt)
	require.NoError(t, err)

	_, ok := graph.Node("org/acme")
	require.True(t, ok)
	_, ok = graph.Node("person/carol")
	require.True(t, ok)

	docID := evt.Data.Document.ID()
	var headLinked bool
	for _, e := range graph.EdgesFrom(docID) {
		if e.Type == HasOntology {
			headLinked = true
			assert.Equal(t, "org/acme", e.To)
		}
	}
	assert.True(t, headLinked, "head node linked via HAS_ONTOLOGY")

	employs := graph.EdgesFrom("org/acme")
	require.Len(t, employs, 1)
	assert.Equal(t, EdgeType("EMPLOYS"), employs[0].Type)
}

func TestResolveOntologyPointerWithoutSources(t *testing.T) {
	evt := resolverEvent(t)
	evt.Data.Metadata.Ontology = &pointer.Handle{URI: "cache://svc/frag"}

	_, err := NewResolver(nil).Resolve(context.Background(), evt)
	require.Error(t, err)
}

func TestResolveNilEvent(t *testing.T) {
	_, err := NewResolver(nil).Resolve(context.Background(), nil)
	require.Error(t, err)
}
