package pipelinestore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/middleware"
)

const definitionYAML = `
id: document-indexing
name: Document indexing pipeline
description: Convert, split and embed ingested documents.
nodes:
  - id: ingest
    uses: passthrough
    config:
      input_types: ["*/*"]
      output_types: ["application/pdf", "text/plain"]
  - id: pdf-converter
    uses: passthrough
    config:
      input_types: ["application/pdf"]
      output_types: ["text/plain"]
  - id: text-splitter
    uses: passthrough
    config:
      input_types: ["text/plain"]
      output_types: ["text/plain"]
connections:
  - from: ingest
    to: pdf-converter
  - from: ingest
    to: text-splitter
    filters:
      - path: data.metadata.language
        equals: en
  - from: pdf-converter
    to: text-splitter
`

type stubConfig struct {
	InputTypes  []string `json:"input_types"`
	OutputTypes []string `json:"output_types"`
}

type stubMW struct {
	name string
	cfg  stubConfig
}

func (m stubMW) Name() string { return m.name }

func (m stubMW) SupportedInputTypes() []string { return m.cfg.InputTypes }

func (m stubMW) SupportedOutputTypes() []string {
	return m.cfg.OutputTypes
}

func (m stubMW) SupportedComputeTypes() []middleware.ComputeType {
	return []middleware.ComputeType{middleware.ComputeCPU}
}

func (m stubMW) Conditional() *conditional.Conditional { return nil }

func newTestRegistry(t *testing.T) *middleware.Registry {
	t.Helper()
	registry := middleware.NewRegistry()
	err := registry.RegisterFactory(&middleware.Registration{
		Name: "passthrough",
		Factory: func(instanceName string, rawConfig json.RawMessage) (middleware.Middleware, error) {
			var cfg stubConfig
			if err := json.Unmarshal(rawConfig, &cfg); err != nil {
				return nil, err
			}
			return stubMW{name: instanceName, cfg: cfg}, nil
		},
	})
	require.NoError(t, err)
	return registry
}

func validPipeline() *Pipeline {
	return &Pipeline{
		ID:    "p1",
		Name:  "test",
		State: StateDraft,
		Nodes: []Node{
			{ID: "a", Uses: "passthrough"},
			{ID: "b", Uses: "passthrough"},
		},
		Connections: []Connection{{From: "a", To: "b"}},
	}
}

func TestLoadYAML(t *testing.T) {
	p, err := LoadYAML([]byte(definitionYAML))
	require.NoError(t, err)

	assert.Equal(t, "document-indexing", p.ID)
	assert.Equal(t, StateDraft, p.State)
	require.Len(t, p.Nodes, 3)
	require.Len(t, p.Connections, 3)
	assert.Equal(t, "passthrough", p.Nodes[1].Uses)
	assert.Equal(t, "en", p.Connections[1].Filters[0].Equals)
}

func TestLoadYAMLRejectsMalformed(t *testing.T) {
	_, err := LoadYAML([]byte("nodes: [unclosed"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Pipeline)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Pipeline) {},
		},
		{
			name:    "missing id",
			mutate:  func(p *Pipeline) { p.ID = "" },
			wantErr: "id required",
		},
		{
			name:    "missing name",
			mutate:  func(p *Pipeline) { p.Name = "" },
			wantErr: "name required",
		},
		{
			name:    "unknown state",
			mutate:  func(p *Pipeline) { p.State = "paused" },
			wantErr: "unknown state",
		},
		{
			name:    "no nodes",
			mutate:  func(p *Pipeline) { p.Nodes = nil; p.Connections = nil },
			wantErr: "at least one node",
		},
		{
			name:    "duplicate node id",
			mutate:  func(p *Pipeline) { p.Nodes[1].ID = "a" },
			wantErr: "duplicate node id",
		},
		{
			name:    "node without middleware",
			mutate:  func(p *Pipeline) { p.Nodes[0].Uses = "" },
			wantErr: "does not name a middleware",
		},
		{
			name:    "dangling connection source",
			mutate:  func(p *Pipeline) { p.Connections[0].From = "ghost" },
			wantErr: "undeclared node",
		},
		{
			name:    "dangling connection target",
			mutate:  func(p *Pipeline) { p.Connections[0].To = "ghost" },
			wantErr: "undeclared node",
		},
		{
			name:    "self connection",
			mutate:  func(p *Pipeline) { p.Connections[0].To = "a" },
			wantErr: "to itself",
		},
		{
			name:    "unknown continuation",
			mutate:  func(p *Pipeline) { p.Connections[0].On = "maybe" },
			wantErr: "unknown continuation",
		},
		{
			name: "duplicate connection",
			mutate: func(p *Pipeline) {
				p.Connections = append(p.Connections, Connection{From: "a", To: "b"})
			},
			wantErr: "duplicate connection",
		},
		{
			name: "empty filter",
			mutate: func(p *Pipeline) {
				p.Connections[0].Filters = []Filter{{Path: "data.metadata.language"}}
			},
			wantErr: "no comparison set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPipeline()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFilterConditional(t *testing.T) {
	lower, upper := 0.8, 1.0
	tests := []struct {
		name       string
		filter     Filter
		projection map[string]any
		want       bool
	}{
		{
			name:       "equals",
			filter:     Filter{Path: "doc.lang", Equals: "en"},
			projection: map[string]any{"doc": map[string]any{"lang": "en"}},
			want:       true,
		},
		{
			name:       "one of",
			filter:     Filter{Path: "doc.lang", OneOf: []any{"en", "fr"}},
			projection: map[string]any{"doc": map[string]any{"lang": "fr"}},
			want:       true,
		},
		{
			name:       "prefix mismatch",
			filter:     Filter{Path: "doc.type", Prefix: "image/"},
			projection: map[string]any{"doc": map[string]any{"type": "text/plain"}},
			want:       false,
		},
		{
			name:       "exists",
			filter:     Filter{Path: "doc.etag", Exists: true},
			projection: map[string]any{"doc": map[string]any{"etag": "v1"}},
			want:       true,
		},
		{
			name:       "numeric range hit",
			filter:     Filter{Path: "doc.confidence", Gte: &lower, Lt: &upper},
			projection: map[string]any{"doc": map[string]any{"confidence": 0.9}},
			want:       true,
		},
		{
			name:       "numeric range miss",
			filter:     Filter{Path: "doc.confidence", Gte: &lower, Lt: &upper},
			projection: map[string]any{"doc": map[string]any{"confidence": 0.5}},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := tt.filter.Conditional()
			require.NoError(t, err)
			got, err := cond.Predicate(tt.projection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildMaterializesGraph(t *testing.T) {
	p, err := LoadYAML([]byte(definitionYAML))
	require.NoError(t, err)

	nodes, err := p.Build(newTestRegistry(t), nil)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	ingest := nodes["ingest"]
	require.NotNil(t, ingest)
	require.Len(t, ingest.Consumers(), 2)
	assert.Len(t, nodes["pdf-converter"].Consumers(), 1)
	assert.Len(t, nodes["text-splitter"].Sources(), 2)

	// The filtered edge routes only English text documents.
	matched, err := ingest.MatchingConsumers(map[string]any{
		"data": map[string]any{
			"document": map[string]any{"type": "text/plain"},
			"metadata": map[string]any{"language": "fr"},
		},
	})
	require.NoError(t, err)
	require.Empty(t, matched)

	matched, err = ingest.MatchingConsumers(map[string]any{
		"data": map[string]any{
			"document": map[string]any{"type": "text/plain"},
			"metadata": map[string]any{"language": "en"},
		},
	})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "text-splitter", matched[0].Name())
}

func TestBuildRejectsUnknownFactory(t *testing.T) {
	p := validPipeline()
	p.Nodes[0].Uses = "nonexistent"
	_, err := p.Build(newTestRegistry(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestBuildRejectsIncompatibleConnection(t *testing.T) {
	yaml := `
id: bad
name: incompatible types
nodes:
  - id: renderer
    uses: passthrough
    config:
      input_types: ["text/html"]
      output_types: ["image/png"]
  - id: splitter
    uses: passthrough
    config:
      input_types: ["text/plain"]
      output_types: ["text/plain"]
connections:
  - from: renderer
    to: splitter
`
	p, err := LoadYAML([]byte(yaml))
	require.NoError(t, err)

	_, err = p.Build(newTestRegistry(t), nil)
	require.Error(t, err)
}

func TestBuildMatchMismatchContinuations(t *testing.T) {
	yaml := `
id: branching
name: conditional branching
nodes:
  - id: detector
    uses: passthrough
    config:
      input_types: ["text/plain"]
      output_types: ["text/plain"]
  - id: keep
    uses: passthrough
    config:
      input_types: ["text/plain"]
      output_types: ["text/plain"]
  - id: discard
    uses: passthrough
    config:
      input_types: ["text/plain"]
      output_types: ["text/plain"]
connections:
  - from: detector
    to: keep
    on: match
  - from: detector
    to: discard
    on: mismatch
`
	p, err := LoadYAML([]byte(yaml))
	require.NoError(t, err)

	nodes, err := p.Build(newTestRegistry(t), nil)
	require.NoError(t, err)

	flagged := map[string]any{
		"data": map[string]any{
			"document": map[string]any{"type": "text/plain"},
			"metadata": map[string]any{"custom": map[string]any{"conditional": "true"}},
		},
	}
	matched, err := nodes["detector"].MatchingConsumers(flagged)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "keep", matched[0].Name())
}
