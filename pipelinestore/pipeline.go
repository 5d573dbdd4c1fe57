package pipelinestore

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/middleware"
)

// State is the deployment lifecycle state of a pipeline.
type State string

// Pipeline lifecycle states.
const (
	StateDraft    State = "draft"
	StateDeployed State = "deployed"
	StateRunning  State = "running"
	StateError    State = "error"
)

// Pipeline is a declarative pipeline definition.
type Pipeline struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version implements optimistic concurrency in the store.
	Version int64 `json:"version" yaml:"version,omitempty"`

	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`

	State     State     `json:"state" yaml:"state,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Node declares one middleware instance. ID doubles as the instance
// name and the transport topic; Uses names the registered factory.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Uses   string         `json:"uses" yaml:"uses"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Connection declares a directed edge between two node IDs. On selects
// the continuation kind: empty for an unconditional edge, "match" or
// "mismatch" for the branches of a flagging middleware.
type Connection struct {
	From    string   `json:"from" yaml:"from"`
	To      string   `json:"to" yaml:"to"`
	On      string   `json:"on,omitempty" yaml:"on,omitempty"`
	Filters []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Filter is one declarative routing condition on an attribute path.
// Exactly one of the comparison fields must be set, except Gte and Lt
// which may be combined into a half-open range.
type Filter struct {
	Path   string   `json:"path" yaml:"path"`
	Equals any      `json:"equals,omitempty" yaml:"equals,omitempty"`
	OneOf  []any    `json:"one_of,omitempty" yaml:"one_of,omitempty"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Exists bool     `json:"exists,omitempty" yaml:"exists,omitempty"`
	Gte    *float64 `json:"gte,omitempty" yaml:"gte,omitempty"`
	Lt     *float64 `json:"lt,omitempty" yaml:"lt,omitempty"`
}

// LoadYAML parses a pipeline definition from YAML (or JSON, which YAML
// subsumes) and validates it.
func LoadYAML(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.WrapInvalid(err, "Pipeline", "LoadYAML", "parse definition")
	}
	if p.State == "" {
		p.State = StateDraft
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the definition for deployment: required identity
// fields, unique node IDs, and connections that reference declared
// nodes. MIME compatibility between connected nodes is checked at
// build time, where the factories are known.
func (p *Pipeline) Validate() error {
	if p.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Pipeline", "Validate", "pipeline id required")
	}
	if p.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Pipeline", "Validate", "pipeline name required")
	}
	switch p.State {
	case StateDraft, StateDeployed, StateRunning, StateError:
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown state %q", p.State),
			"Pipeline", "Validate", "state check")
	}
	if len(p.Nodes) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Pipeline", "Validate", "at least one node required")
	}

	nodeIDs := make(map[string]bool, len(p.Nodes))
	for i, node := range p.Nodes {
		if node.ID == "" {
			return errors.WrapInvalid(
				fmt.Errorf("node at index %d has no id", i),
				"Pipeline", "Validate", "node check")
		}
		if err := middleware.ValidateName(node.ID); err != nil {
			return errors.Wrap(err, "Pipeline", "Validate", "node "+node.ID)
		}
		if node.Uses == "" {
			return errors.WrapInvalid(
				fmt.Errorf("node %q does not name a middleware", node.ID),
				"Pipeline", "Validate", "node check")
		}
		if nodeIDs[node.ID] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate node id %q", node.ID),
				"Pipeline", "Validate", "node check")
		}
		nodeIDs[node.ID] = true
	}

	seen := make(map[string]bool, len(p.Connections))
	for i, conn := range p.Connections {
		if !nodeIDs[conn.From] {
			return errors.WrapInvalid(
				fmt.Errorf("connection %d references undeclared node %q", i, conn.From),
				"Pipeline", "Validate", "connection check")
		}
		if !nodeIDs[conn.To] {
			return errors.WrapInvalid(
				fmt.Errorf("connection %d references undeclared node %q", i, conn.To),
				"Pipeline", "Validate", "connection check")
		}
		if conn.From == conn.To {
			return errors.WrapInvalid(
				fmt.Errorf("connection %d connects %q to itself", i, conn.From),
				"Pipeline", "Validate", "connection check")
		}
		switch conn.On {
		case "", "match", "mismatch":
		default:
			return errors.WrapInvalid(
				fmt.Errorf("connection %d has unknown continuation %q", i, conn.On),
				"Pipeline", "Validate", "connection check")
		}
		key := conn.From + "\x00" + conn.To
		if seen[key] {
			return errors.WrapInvalid(
				fmt.Errorf("duplicate connection from %q to %q", conn.From, conn.To),
				"Pipeline", "Validate", "connection check")
		}
		seen[key] = true

		for _, filter := range p.Connections[i].Filters {
			if _, err := filter.Conditional(); err != nil {
				return errors.Wrap(err, "Pipeline", "Validate",
					fmt.Sprintf("connection %d filter on %s", i, filter.Path))
			}
		}
	}
	return nil
}

// Conditional compiles the filter to a routing conditional.
func (f Filter) Conditional() (*conditional.Conditional, error) {
	var conds []*conditional.Conditional
	if f.Equals != nil {
		conds = append(conds, conditional.When(f.Path).Equals(f.Equals))
	}
	if len(f.OneOf) > 0 {
		conds = append(conds, conditional.When(f.Path).OneOf(f.OneOf...))
	}
	if f.Prefix != "" {
		conds = append(conds, conditional.When(f.Path).HasPrefix(f.Prefix))
	}
	if f.Exists {
		conds = append(conds, conditional.When(f.Path).Exists())
	}
	if f.Gte != nil {
		conds = append(conds, conditional.When(f.Path).Gte(*f.Gte))
	}
	if f.Lt != nil {
		conds = append(conds, conditional.When(f.Path).Lt(*f.Lt))
	}
	if len(conds) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConditional, "Filter", "Conditional",
			"no comparison set for "+f.Path)
	}

	merged := conds[0]
	for _, c := range conds[1:] {
		merged = merged.And(c)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Build materializes the definition into a middleware graph. Nodes are
// instantiated through the registry's factories and connected in
// declaration order; the returned map is keyed by node ID. The notifier
// may be nil when no monitoring is attached.
func (p *Pipeline) Build(registry *middleware.Registry, notifier *middleware.Notifier) (map[string]*middleware.Node, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Pipeline", "Build", "registry required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	nodes := make(map[string]*middleware.Node, len(p.Nodes))
	for _, decl := range p.Nodes {
		rawConfig, err := json.Marshal(decl.Config)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Pipeline", "Build", "encode config for "+decl.ID)
		}
		node, err := registry.CreateNode(decl.ID, decl.Uses, rawConfig, notifier)
		if err != nil {
			return nil, errors.Wrap(err, "Pipeline", "Build", "create node "+decl.ID)
		}
		nodes[decl.ID] = node
	}

	for _, conn := range p.Connections {
		filters := make([]*conditional.Conditional, 0, len(conn.Filters))
		for _, filter := range conn.Filters {
			cond, err := filter.Conditional()
			if err != nil {
				return nil, errors.Wrap(err, "Pipeline", "Build", "compile filter on "+filter.Path)
			}
			filters = append(filters, cond)
		}

		from, to := nodes[conn.From], nodes[conn.To]
		var err error
		switch conn.On {
		case "match":
			err = from.OnMatch(to, filters...)
		case "mismatch":
			err = from.OnMismatch(to, filters...)
		default:
			err = from.Pipe(to, filters...)
		}
		if err != nil {
			return nil, errors.Wrap(err, "Pipeline", "Build",
				fmt.Sprintf("connect %s to %s", conn.From, conn.To))
		}
	}
	return nodes, nil
}
